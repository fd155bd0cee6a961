// Package mail delivers transactional email for badge and backpack events.
// Sendgrid is the production backend; the console backend logs rendered
// messages for local development
package mail

import (
	"context"

	perr "badgehub/internal/platform/errors"
)

// Message is one rendered email ready for delivery
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// HasRecipients reports whether at least one non-empty recipient is set
func (m Message) HasRecipients() bool {
	for _, to := range m.To {
		if to != "" {
			return true
		}
	}
	return false
}

// HasContent reports whether the message carries a body
func (m Message) HasContent() bool { return m.Text != "" || m.HTML != "" }

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and parameterizes the backend
type Config struct {
	// Backend is "sendgrid" or "console"; empty picks console when the
	// api key is absent
	Backend string

	SendgridKey string
	FromName    string
	FromAddr    string

	// SubjectPrefix is prepended to every subject, e.g. "[BadgeHub] "
	SubjectPrefix string
}

// New builds the configured sender
func New(cfg Config) (Sender, error) {
	switch cfg.Backend {
	case "sendgrid":
		if cfg.SendgridKey == "" {
			return nil, perr.InvalidArgf("mail: sendgrid backend requires an api key")
		}
		return newSendgridSender(cfg), nil
	case "console":
		return newConsoleSender(cfg), nil
	case "":
		if cfg.SendgridKey != "" {
			return newSendgridSender(cfg), nil
		}
		return newConsoleSender(cfg), nil
	default:
		return nil, perr.InvalidArgf("mail: unknown backend %q", cfg.Backend)
	}
}
