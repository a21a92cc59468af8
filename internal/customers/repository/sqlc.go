package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	db "github.com/autoinvoice/autoinvoice/internal/db/sqlc"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

type SQLCRepository struct {
	q *db.Queries
}

func New(pg *pgxpool.Pool) *SQLCRepository {
	return &SQLCRepository{q: db.New(pg)}
}

func toPgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func toDomain(c db.Customer) domain.Customer {
	return domain.Customer{
		ID:        uuid.UUID(c.ID.Bytes),
		OwnerID:   uuid.UUID(c.OwnerID.Bytes),
		Name:      c.Name,
		Email:     fromPgText(c.Email),
		Phone:     fromPgText(c.Phone),
		Address:   fromPgText(c.Address),
		VATID:     fromPgText(c.VatID),
		IBAN:      fromPgText(c.Iban),
		BIC:       fromPgText(c.Bic),
		CreatedAt: c.CreatedAt.Time,
		UpdatedAt: c.UpdatedAt.Time,
	}
}

// mapErr turns storage errors into the shared error kinds.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("customer")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "customers_owner_vat_id_key":
			return apperror.Validation("vat_id", "a customer with this VAT ID already exists")
		default:
			return apperror.Validation("name", "a customer with this name already exists")
		}
	}
	return err
}

func (r *SQLCRepository) Create(ctx context.Context, owner uuid.UUID, id uuid.UUID, in domain.Input) (domain.Customer, error) {
	c, err := r.q.CreateCustomer(ctx, db.CreateCustomerParams{
		ID:      toPgUUID(id),
		OwnerID: toPgUUID(owner),
		Name:    in.Name,
		Email:   toPgText(in.Email),
		Phone:   toPgText(in.Phone),
		Address: toPgText(in.Address),
		VatID:   toPgText(in.VATID),
		Iban:    toPgText(in.IBAN),
		Bic:     toPgText(in.BIC),
	})
	if err != nil {
		return domain.Customer{}, mapErr(err)
	}
	return toDomain(c), nil
}

func (r *SQLCRepository) Get(ctx context.Context, owner, id uuid.UUID) (domain.Customer, error) {
	c, err := r.q.GetCustomer(ctx, db.GetCustomerParams{ID: toPgUUID(id), OwnerID: toPgUUID(owner)})
	if err != nil {
		return domain.Customer{}, mapErr(err)
	}
	return toDomain(c), nil
}

func (r *SQLCRepository) Update(ctx context.Context, owner, id uuid.UUID, in domain.Input) (domain.Customer, error) {
	c, err := r.q.UpdateCustomer(ctx, db.UpdateCustomerParams{
		ID:      toPgUUID(id),
		OwnerID: toPgUUID(owner),
		Name:    in.Name,
		Email:   toPgText(in.Email),
		Phone:   toPgText(in.Phone),
		Address: toPgText(in.Address),
		VatID:   toPgText(in.VATID),
		Iban:    toPgText(in.IBAN),
		Bic:     toPgText(in.BIC),
	})
	if err != nil {
		return domain.Customer{}, mapErr(err)
	}
	return toDomain(c), nil
}

func (r *SQLCRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	n, err := r.q.DeleteCustomer(ctx, db.DeleteCustomerParams{ID: toPgUUID(id), OwnerID: toPgUUID(owner)})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("customer")
	}
	return nil
}

func (r *SQLCRepository) List(ctx context.Context, owner uuid.UUID, query string, limit, offset int32) ([]domain.Customer, int64, error) {
	rows, err := r.q.ListCustomers(ctx, db.ListCustomersParams{
		OwnerID: toPgUUID(owner),
		Column2: query,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := r.q.CountCustomers(ctx, db.CountCustomersParams{OwnerID: toPgUUID(owner), Column2: query})
	if err != nil {
		return nil, 0, err
	}
	items := make([]domain.Customer, 0, len(rows))
	for _, c := range rows {
		items = append(items, toDomain(c))
	}
	return items, total, nil
}
