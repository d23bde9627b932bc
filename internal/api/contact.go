package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/podushkina/notifyqueue/internal/email"
	"github.com/podushkina/notifyqueue/internal/handlers"
	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/podushkina/notifyqueue/internal/queue"
)

const maxContactBody = 1 << 20

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message"`
}

type ContactResponse struct {
	Status string   `json:"status"`
	JobIDs []string `json:"jobIds"`
}

func (c *ContactRequest) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	c.Company = strings.TrimSpace(c.Company)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Topic = strings.TrimSpace(c.Topic)
	c.Message = strings.TrimSpace(c.Message)
	if c.Topic == "" {
		c.Topic = "general"
	}
}

func (c *ContactRequest) validate() string {
	if c.Name == "" {
		return "name is required"
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return "a valid email is required"
	}
	if c.Message == "" {
		return "message is required"
	}
	return ""
}

// Contact accepts a support form. It queues an alert for the team and a
// confirmation for the sender, then answers without waiting for delivery.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.normalize()
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	ids, err := h.queue.EnqueueMany(r.Context(), []queue.Request{
		{Type: job.TypeNotification, Payload: adminAlert(req)},
		{Type: job.TypeEmail, Payload: confirmation(req)},
	})
	if err != nil {
		log.Printf("contact: enqueue failed: %v", err)
		respondError(w, http.StatusInternalServerError, "could not accept request")
		return
	}

	respondJSON(w, http.StatusAccepted, ContactResponse{Status: "submitted", JobIDs: ids})
}

func adminAlert(req ContactRequest) handlers.Alert {
	fields := map[string]string{
		"name":  req.Name,
		"email": req.Email,
		"topic": req.Topic,
	}
	if req.Company != "" {
		fields["company"] = req.Company
	}
	if req.Phone != "" {
		fields["phone"] = req.Phone
	}

	return handlers.Alert{
		Subject: fmt.Sprintf("New %s request from %s", req.Topic, req.Name),
		Message: req.Message,
		ReplyTo: req.Email,
		Fields:  fields,
	}
}

func confirmation(req ContactRequest) email.Message {
	return email.Message{
		To:      req.Email,
		Subject: "We received your request",
		Text: fmt.Sprintf("Hi %s,\n\nThanks for reaching out. Our team will get back to you shortly.\n\nYour message:\n%s\n",
			req.Name, req.Message),
	}
}
