package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle position of an invoice.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool { return s == StatusPaid || s == StatusCancelled }

// Type distinguishes regular invoices from pro forma ones.
type Type string

const (
	TypeInvoice  Type = "INVOICE"
	TypeProforma Type = "PROFORMA"
)

func (t Type) Valid() bool { return t == TypeInvoice || t == TypeProforma }

// Transition names a lifecycle action.
type Transition string

const (
	TransitionSend     Transition = "send"
	TransitionMarkPaid Transition = "mark_paid"
	TransitionCancel   Transition = "cancel"
)

// Transitions lists every lifecycle action in display order.
var Transitions = []Transition{TransitionSend, TransitionMarkPaid, TransitionCancel}

// ErrStale is returned by the repository when a guarded update matched no
// row: the invoice is gone, owned by someone else, or no longer in the
// expected status. Callers re-read to tell these apart.
var ErrStale = errors.New("invoice changed concurrently")

type Invoice struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	CustomerID         uuid.UUID
	Type               Type
	Number             string
	IssueDate          time.Time
	DueDate            time.Time
	Currency           string
	Notes              *string
	Status             Status
	SentAt             *time.Time
	PaidAt             *time.Time
	CancelledAt        *time.Time
	LastError          *string
	LastDispatchStatus *int
	DispatchClaimedAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Items is populated by service reads; repository reads leave it nil.
	Items []Item
}

type Item struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
	CreatedAt   time.Time
}

// Input carries the writable invoice header fields.
type Input struct {
	CustomerID uuid.UUID
	Type       Type
	Number     string
	IssueDate  time.Time
	// DueDate defaults to IssueDate plus the owner's payment term when nil.
	DueDate  *time.Time
	Currency string
	Notes    *string
	Items    []ItemInput
}

type ItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
}

// ListOptions for invoice listing
type ListOptions struct {
	Status   Status
	Page     int
	PageSize int
}

// ListResult holds items and pagination metadata
type ListResult struct {
	Items      []Invoice
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Stats summarises an owner's book.
type Stats struct {
	Customers   int64
	Invoices    int64
	ByStatus    map[Status]int64
	PaidRevenue decimal.Decimal
}

// Repository abstracts persistence for invoices and their items. Every
// method is scoped to an owner.
type Repository interface {
	Create(ctx context.Context, inv Invoice, items []ItemInput) (Invoice, []Item, error)
	Get(ctx context.Context, owner, id uuid.UUID) (Invoice, error)
	List(ctx context.Context, owner uuid.UUID, status Status, limit, offset int32) ([]Invoice, int64, error)
	UpdateDraft(ctx context.Context, owner, id uuid.UUID, in Input, due time.Time) (Invoice, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error

	Items(ctx context.Context, owner, id uuid.UUID) ([]Item, error)
	ItemsFor(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (map[uuid.UUID][]Item, error)
	AddItem(ctx context.Context, owner, invoiceID uuid.UUID, in ItemInput) (Item, error)
	RemoveItem(ctx context.Context, owner, invoiceID, itemID uuid.UUID) error

	// ClaimDispatch marks a DRAFT invoice as being sent unless a claim newer
	// than staleBefore is already held.
	ClaimDispatch(ctx context.Context, owner, id uuid.UUID, staleBefore time.Time) (Invoice, error)
	MarkSent(ctx context.Context, owner, id uuid.UUID, statusCode int) (Invoice, error)
	RecordDispatchFailure(ctx context.Context, owner, id uuid.UUID, statusCode int, message string) (Invoice, error)
	// Transition moves from -> to, refusing while a fresh dispatch claim is held.
	Transition(ctx context.Context, owner, id uuid.UUID, from, to Status, staleBefore time.Time) (Invoice, error)

	StatusCounts(ctx context.Context, owner uuid.UUID) (map[Status]int64, error)
	PaidRevenue(ctx context.Context, owner uuid.UUID) (decimal.Decimal, error)
}

// Service encapsulates invoice business logic.
type Service interface {
	Create(ctx context.Context, owner uuid.UUID, in Input) (Invoice, error)
	Get(ctx context.Context, owner, id uuid.UUID) (Invoice, error)
	List(ctx context.Context, owner uuid.UUID, opts ListOptions) (ListResult, error)
	Update(ctx context.Context, owner, id uuid.UUID, in Input) (Invoice, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error

	AddItem(ctx context.Context, owner, invoiceID uuid.UUID, in ItemInput) (Item, error)
	RemoveItem(ctx context.Context, owner, invoiceID, itemID uuid.UUID) error

	Send(ctx context.Context, owner, id uuid.UUID) (Invoice, error)
	MarkPaid(ctx context.Context, owner, id uuid.UUID) (Invoice, error)
	Cancel(ctx context.Context, owner, id uuid.UUID) (Invoice, error)

	Stats(ctx context.Context, owner uuid.UUID) (Stats, error)
}
