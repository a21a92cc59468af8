package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	db "github.com/autoinvoice/autoinvoice/internal/db/sqlc"
	domain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

type SQLCRepository struct {
	pool *pgxpool.Pool
	q    *db.Queries
}

func New(pg *pgxpool.Pool) *SQLCRepository {
	return &SQLCRepository{pool: pg, q: db.New(pg)}
}

func toPgUUID(u uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: u, Valid: true} }

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func toPgDate(t time.Time) pgtype.Date { return pgtype.Date{Time: t, Valid: true} }

func toPgTime(t time.Time) pgtype.Timestamptz { return pgtype.Timestamptz{Time: t, Valid: true} }

func toPgInt(n int) pgtype.Int4 {
	if n == 0 {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func fromPgTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func fromPgInt(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func toDomain(i db.Invoice) domain.Invoice {
	return domain.Invoice{
		ID:                 uuid.UUID(i.ID.Bytes),
		OwnerID:            uuid.UUID(i.OwnerID.Bytes),
		CustomerID:         uuid.UUID(i.CustomerID.Bytes),
		Type:               domain.Type(i.InvoiceType),
		Number:             i.Number,
		IssueDate:          i.IssueDate.Time,
		DueDate:            i.DueDate.Time,
		Currency:           i.Currency,
		Notes:              fromPgText(i.Notes),
		Status:             domain.Status(i.Status),
		SentAt:             fromPgTime(i.SentAt),
		PaidAt:             fromPgTime(i.PaidAt),
		CancelledAt:        fromPgTime(i.CancelledAt),
		LastError:          fromPgText(i.LastError),
		LastDispatchStatus: fromPgInt(i.LastDispatchStatus),
		DispatchClaimedAt:  fromPgTime(i.DispatchClaimedAt),
		CreatedAt:          i.CreatedAt.Time,
		UpdatedAt:          i.UpdatedAt.Time,
	}
}

func itemToDomain(it db.InvoiceItem) domain.Item {
	return domain.Item{
		ID:          uuid.UUID(it.ID.Bytes),
		InvoiceID:   uuid.UUID(it.InvoiceID.Bytes),
		Description: it.Description,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		VATRate:     it.VatRate,
		CreatedAt:   it.CreatedAt.Time,
	}
}

// mapErr turns storage errors into the shared error kinds.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("invoice")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "invoices_owner_number_key" {
				return apperror.Validation("number", "an invoice with this number already exists")
			}
		case "23503":
			return apperror.Validation("customer_id", "unknown customer")
		case "23514":
			return apperror.Validation(checkField(pgErr.ConstraintName), "value not allowed")
		case "22003":
			return apperror.Validation("items", "numeric value out of range")
		}
	}
	return err
}

func checkField(constraint string) string {
	switch constraint {
	case "invoices_due_after_issue":
		return "due_date"
	case "invoice_items_vat_rate_check":
		return "vat_rate"
	case "invoice_items_quantity_check":
		return "quantity"
	case "invoice_items_unit_price_check":
		return "unit_price"
	}
	return constraint
}

// guarded maps "no row matched" on a conditional update to ErrStale.
func guarded(i db.Invoice, err error) (domain.Invoice, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invoice{}, domain.ErrStale
	}
	if err != nil {
		return domain.Invoice{}, mapErr(err)
	}
	return toDomain(i), nil
}

func (r *SQLCRepository) Create(ctx context.Context, inv domain.Invoice, items []domain.ItemInput) (domain.Invoice, []domain.Item, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Invoice{}, nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	q := r.q.WithTx(tx)

	row, err := q.CreateInvoice(ctx, db.CreateInvoiceParams{
		ID:          toPgUUID(inv.ID),
		OwnerID:     toPgUUID(inv.OwnerID),
		CustomerID:  toPgUUID(inv.CustomerID),
		InvoiceType: string(inv.Type),
		Number:      inv.Number,
		IssueDate:   toPgDate(inv.IssueDate),
		DueDate:     toPgDate(inv.DueDate),
		Currency:    inv.Currency,
		Notes:       toPgText(inv.Notes),
	})
	if err != nil {
		return domain.Invoice{}, nil, mapErr(err)
	}
	out := make([]domain.Item, 0, len(items))
	for _, in := range items {
		it, err := q.CreateInvoiceItem(ctx, itemParams(inv.OwnerID, inv.ID, in))
		if err != nil {
			return domain.Invoice{}, nil, mapErr(err)
		}
		out = append(out, itemToDomain(it))
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Invoice{}, nil, fmt.Errorf("commit: %w", err)
	}
	return toDomain(row), out, nil
}

func itemParams(owner, invoiceID uuid.UUID, in domain.ItemInput) db.CreateInvoiceItemParams {
	return db.CreateInvoiceItemParams{
		ID:          toPgUUID(uuid.New()),
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		VatRate:     in.VATRate,
		InvoiceID:   toPgUUID(invoiceID),
		OwnerID:     toPgUUID(owner),
	}
}

func (r *SQLCRepository) Get(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	i, err := r.q.GetInvoice(ctx, db.GetInvoiceParams{ID: toPgUUID(id), OwnerID: toPgUUID(owner)})
	if err != nil {
		return domain.Invoice{}, mapErr(err)
	}
	return toDomain(i), nil
}

func (r *SQLCRepository) List(ctx context.Context, owner uuid.UUID, status domain.Status, limit, offset int32) ([]domain.Invoice, int64, error) {
	rows, err := r.q.ListInvoices(ctx, db.ListInvoicesParams{
		OwnerID: toPgUUID(owner),
		Column2: string(status),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := r.q.CountInvoices(ctx, db.CountInvoicesParams{OwnerID: toPgUUID(owner), Column2: string(status)})
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Invoice, 0, len(rows))
	for _, i := range rows {
		out = append(out, toDomain(i))
	}
	return out, total, nil
}

func (r *SQLCRepository) UpdateDraft(ctx context.Context, owner, id uuid.UUID, in domain.Input, due time.Time) (domain.Invoice, error) {
	return guarded(r.q.UpdateDraftInvoice(ctx, db.UpdateDraftInvoiceParams{
		ID:          toPgUUID(id),
		OwnerID:     toPgUUID(owner),
		CustomerID:  toPgUUID(in.CustomerID),
		InvoiceType: string(in.Type),
		Number:      in.Number,
		IssueDate:   toPgDate(in.IssueDate),
		DueDate:     toPgDate(due),
		Currency:    in.Currency,
		Notes:       toPgText(in.Notes),
	}))
}

func (r *SQLCRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	n, err := r.q.DeleteInvoice(ctx, db.DeleteInvoiceParams{ID: toPgUUID(id), OwnerID: toPgUUID(owner)})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStale
	}
	return nil
}

func (r *SQLCRepository) Items(ctx context.Context, owner, id uuid.UUID) ([]domain.Item, error) {
	rows, err := r.q.ListInvoiceItems(ctx, db.ListInvoiceItemsParams{InvoiceID: toPgUUID(id), OwnerID: toPgUUID(owner)})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(rows))
	for _, it := range rows {
		out = append(out, itemToDomain(it))
	}
	return out, nil
}

func (r *SQLCRepository) ItemsFor(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (map[uuid.UUID][]domain.Item, error) {
	out := make(map[uuid.UUID][]domain.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pgIDs := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		pgIDs = append(pgIDs, toPgUUID(id))
	}
	rows, err := r.q.ListInvoiceItemsForInvoices(ctx, db.ListInvoiceItemsForInvoicesParams{OwnerID: toPgUUID(owner), Column2: pgIDs})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		it := itemToDomain(row)
		out[it.InvoiceID] = append(out[it.InvoiceID], it)
	}
	return out, nil
}

func (r *SQLCRepository) AddItem(ctx context.Context, owner, invoiceID uuid.UUID, in domain.ItemInput) (domain.Item, error) {
	it, err := r.q.CreateInvoiceItem(ctx, itemParams(owner, invoiceID, in))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, domain.ErrStale
	}
	if err != nil {
		return domain.Item{}, mapErr(err)
	}
	return itemToDomain(it), nil
}

func (r *SQLCRepository) RemoveItem(ctx context.Context, owner, invoiceID, itemID uuid.UUID) error {
	n, err := r.q.DeleteInvoiceItem(ctx, db.DeleteInvoiceItemParams{
		ID:        toPgUUID(itemID),
		InvoiceID: toPgUUID(invoiceID),
		OwnerID:   toPgUUID(owner),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStale
	}
	return nil
}

func (r *SQLCRepository) ClaimDispatch(ctx context.Context, owner, id uuid.UUID, staleBefore time.Time) (domain.Invoice, error) {
	return guarded(r.q.ClaimInvoiceDispatch(ctx, db.ClaimInvoiceDispatchParams{
		ID:          toPgUUID(id),
		OwnerID:     toPgUUID(owner),
		StaleBefore: toPgTime(staleBefore),
	}))
}

func (r *SQLCRepository) MarkSent(ctx context.Context, owner, id uuid.UUID, statusCode int) (domain.Invoice, error) {
	return guarded(r.q.MarkInvoiceSent(ctx, db.MarkInvoiceSentParams{
		ID:                 toPgUUID(id),
		OwnerID:            toPgUUID(owner),
		LastDispatchStatus: toPgInt(statusCode),
	}))
}

func (r *SQLCRepository) RecordDispatchFailure(ctx context.Context, owner, id uuid.UUID, statusCode int, message string) (domain.Invoice, error) {
	return guarded(r.q.RecordInvoiceDispatchFailure(ctx, db.RecordInvoiceDispatchFailureParams{
		ID:                 toPgUUID(id),
		OwnerID:            toPgUUID(owner),
		LastError:          pgtype.Text{String: message, Valid: true},
		LastDispatchStatus: toPgInt(statusCode),
	}))
}

func (r *SQLCRepository) Transition(ctx context.Context, owner, id uuid.UUID, from, to domain.Status, staleBefore time.Time) (domain.Invoice, error) {
	return guarded(r.q.TransitionInvoiceStatus(ctx, db.TransitionInvoiceStatusParams{
		ToStatus:    string(to),
		ID:          toPgUUID(id),
		OwnerID:     toPgUUID(owner),
		FromStatus:  string(from),
		StaleBefore: toPgTime(staleBefore),
	}))
}

func (r *SQLCRepository) StatusCounts(ctx context.Context, owner uuid.UUID) (map[domain.Status]int64, error) {
	rows, err := r.q.CountInvoicesByStatus(ctx, toPgUUID(owner))
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(rows))
	for _, row := range rows {
		out[domain.Status(row.Status)] = row.Count
	}
	return out, nil
}

func (r *SQLCRepository) PaidRevenue(ctx context.Context, owner uuid.UUID) (decimal.Decimal, error) {
	return r.q.SumPaidInvoiceTotals(ctx, toPgUUID(owner))
}
