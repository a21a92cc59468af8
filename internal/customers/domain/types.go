package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Customer is a billed party. It belongs to exactly one owner.
type Customer struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	Address   *string
	VATID     *string
	IBAN      *string
	BIC       *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input carries the writable customer fields.
type Input struct {
	Name    string
	Email   *string
	Phone   *string
	Address *string
	VATID   *string
	IBAN    *string
	BIC     *string
}

// ListOptions for customer listing
type ListOptions struct {
	Query    string
	Page     int
	PageSize int
}

// ListResult holds items and pagination metadata
type ListResult struct {
	Items      []Customer
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// Repository abstracts persistence for customers. Every method is scoped to
// an owner; a row owned by someone else behaves as missing.
type Repository interface {
	Create(ctx context.Context, owner uuid.UUID, id uuid.UUID, in Input) (Customer, error)
	Get(ctx context.Context, owner, id uuid.UUID) (Customer, error)
	Update(ctx context.Context, owner, id uuid.UUID, in Input) (Customer, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	List(ctx context.Context, owner uuid.UUID, query string, limit, offset int32) ([]Customer, int64, error)
}

// Service encapsulates business logic for customers.
type Service interface {
	Create(ctx context.Context, owner uuid.UUID, in Input) (Customer, error)
	Get(ctx context.Context, owner, id uuid.UUID) (Customer, error)
	Update(ctx context.Context, owner, id uuid.UUID, in Input) (Customer, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	List(ctx context.Context, owner uuid.UUID, opts ListOptions) (ListResult, error)
}
