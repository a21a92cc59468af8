package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

func TestRepository_OwnerScoping_Integration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		t.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	repo := New(pool)
	owner, stranger := uuid.New(), uuid.New()
	name := "itest-" + uuid.NewString()
	vat := "PL" + uuid.NewString()[:10]

	c, err := repo.Create(ctx, owner, uuid.New(), domain.Input{Name: name, VATID: &vat})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := repo.Get(ctx, stranger, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if err := repo.Delete(ctx, stranger, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found deleting foreign row, got %v", err)
	}

	// Same VAT ID for the same owner collides; for another owner it does not.
	_, err = repo.Create(ctx, owner, uuid.New(), domain.Input{Name: name + "-2", VATID: &vat})
	var ve apperror.ValidationError
	if !errors.As(err, &ve) || ve.Field != "vat_id" {
		t.Fatalf("expected vat_id validation error, got %v", err)
	}
	other, err := repo.Create(ctx, stranger, uuid.New(), domain.Input{Name: name, VATID: &vat})
	if err != nil {
		t.Fatalf("Create for second owner failed: %v", err)
	}

	items, total, err := repo.List(ctx, owner, name, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != c.ID {
		t.Fatalf("expected only the owner's customer, got total=%d items=%v", total, items)
	}

	_ = repo.Delete(ctx, owner, c.ID)
	_ = repo.Delete(ctx, stranger, other.ID)
}
