package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
)

// Token is what the workflow receives to send mail on a user's behalf.
type Token struct {
	Provider    madomain.Provider
	From        string
	AccessToken string
	ExpiresAt   *time.Time
}

// Message is one outgoing email with an optional PDF attachment.
type Message struct {
	To   string
	From string
	// FromName is the display name shown next to From, if any.
	FromName string
	Subject  string
	HTML     string
	PDFName  string
	PDF      []byte
}

// SendRequest asks the service to deliver a message from the user's mailbox.
type SendRequest struct {
	UserID   uuid.UUID
	Provider madomain.Provider
	Message  Message
}

// Event is a delivery notification forwarded by the workflow or a provider.
type Event struct {
	UserID string
	Type   string
	ID     string
	IP     string
}

// Transport submits an assembled MIME message with a bearer token.
type Transport interface {
	Send(ctx context.Context, accessToken string, raw []byte) error
}

type Service interface {
	Token(ctx context.Context, user uuid.UUID, provider madomain.Provider) (Token, error)
	Send(ctx context.Context, req SendRequest) error
	Event(ctx context.Context, ev Event) error
}
