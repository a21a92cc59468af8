package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is an audit record of something an owner's data went through.
// Type examples: "invoice.sent", "invoice.send_failed", "mailer.event".
// Meta may contain number, status_code, provider, ip, etc. Never tokens.
type Event struct {
	Type      string
	OwnerID   uuid.UUID
	SubjectID uuid.UUID
	Meta      map[string]string
	Time      time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Event types.
const (
	TypeInvoiceSent       = "invoice.sent"
	TypeInvoiceSendFailed = "invoice.send_failed"
	TypeInvoicePaid       = "invoice.paid"
	TypeInvoiceCancelled  = "invoice.cancelled"
	TypeMailerEvent       = "mailer.event"
	TypeMailRelayed       = "mailer.relay"
	TypeMailAccountLinked = "mail_account.linked"
	TypeSettingsUpdated   = "settings.updated"
)
