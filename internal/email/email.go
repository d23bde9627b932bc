package email

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
)

// Sender performs exactly one delivery attempt. Retries belong to the caller.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string   `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	ReplyTo string   `json:"replyTo,omitempty"`
}

var (
	ErrNoRecipient    = errors.New("message has no recipient")
	ErrNoSubject      = errors.New("message has no subject")
	ErrInvalidAddress = errors.New("invalid address")
)

// Validate rejects messages no relay could ever accept.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrNoSubject
	}
	if err := checkAddress("to", m.To); err != nil {
		return err
	}
	for _, cc := range m.Cc {
		if err := checkAddress("cc", cc); err != nil {
			return err
		}
	}
	if m.ReplyTo != "" {
		if err := checkAddress("reply-to", m.ReplyTo); err != nil {
			return err
		}
	}
	return nil
}

func checkAddress(field, addr string) error {
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w in %s %q: %v", ErrInvalidAddress, field, addr, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	log.Printf("email: to=%s cc=%v reply-to=%s subject=%q (%d bytes)",
		msg.To, msg.Cc, msg.ReplyTo, msg.Subject, len(msg.Text))
	return nil
}
