package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/podushkina/notifyqueue/internal/email"
	"github.com/podushkina/notifyqueue/internal/job"
)

// Alert is the payload of a notification job: an operator-facing message
// delivered to every configured admin address.
type Alert struct {
	Subject string            `json:"subject"`
	Message string            `json:"message"`
	ReplyTo string            `json:"replyTo,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var ErrNoAdmins = errors.New("no admin recipients configured")

// Email delivers an email job's message as-is.
func Email(sender email.Sender) func(ctx context.Context, j *job.Job) error {
	return func(ctx context.Context, j *job.Job) error {
		var msg email.Message
		if err := json.Unmarshal(j.Payload, &msg); err != nil {
			return job.Permanent(fmt.Errorf("invalid email payload: %w", err))
		}
		if err := msg.Validate(); err != nil {
			return job.Permanent(err)
		}
		return sender.Send(ctx, msg)
	}
}

// Notification sends an alert to the admin list. The first address is the
// recipient and the rest are copied.
func Notification(sender email.Sender, admins []string) func(ctx context.Context, j *job.Job) error {
	return func(ctx context.Context, j *job.Job) error {
		if len(admins) == 0 {
			return job.Permanent(ErrNoAdmins)
		}

		var a Alert
		if err := json.Unmarshal(j.Payload, &a); err != nil {
			return job.Permanent(fmt.Errorf("invalid notification payload: %w", err))
		}
		if strings.TrimSpace(a.Subject) == "" {
			return job.Permanent(email.ErrNoSubject)
		}

		msg := email.Message{
			To:      admins[0],
			Cc:      admins[1:],
			Subject: a.Subject,
			Text:    a.body(),
			ReplyTo: a.ReplyTo,
		}
		if err := msg.Validate(); err != nil {
			return job.Permanent(err)
		}
		return sender.Send(ctx, msg)
	}
}

func (a Alert) body() string {
	var b strings.Builder
	b.WriteString(a.Message)

	if len(a.Fields) > 0 {
		keys := make([]string, 0, len(a.Fields))
		for k := range a.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, a.Fields[k])
		}
	}
	return b.String()
}
