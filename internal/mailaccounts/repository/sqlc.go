package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/autoinvoice/autoinvoice/internal/db/sqlc"
	domain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

type SQLCRepository struct {
	pool *pgxpool.Pool
	q    *db.Queries
}

func New(pg *pgxpool.Pool) *SQLCRepository {
	return &SQLCRepository{pool: pg, q: db.New(pg)}
}

func toPgUUID(id uuid.UUID) pgtype.UUID { return pgtype.UUID{Bytes: id, Valid: true} }

func toPgTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func toDomain(m db.MailAccount) domain.Account {
	a := domain.Account{
		ID:              uuid.UUID(m.ID.Bytes),
		UserID:          uuid.UUID(m.UserID.Bytes),
		Provider:        domain.Provider(m.Provider),
		Email:           m.Email,
		AccessTokenEnc:  m.AccessTokenEnc,
		RefreshTokenEnc: m.RefreshTokenEnc,
		CreatedAt:       m.CreatedAt.Time,
		UpdatedAt:       m.UpdatedAt.Time,
	}
	if m.ExpiresAt.Valid {
		t := m.ExpiresAt.Time
		a.ExpiresAt = &t
	}
	return a
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("mail account")
	}
	return err
}

func (r *SQLCRepository) Upsert(ctx context.Context, a domain.Account) (domain.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m, err := r.q.UpsertMailAccount(ctx, db.UpsertMailAccountParams{
		ID:              toPgUUID(a.ID),
		UserID:          toPgUUID(a.UserID),
		Provider:        string(a.Provider),
		Email:           a.Email,
		AccessTokenEnc:  a.AccessTokenEnc,
		RefreshTokenEnc: a.RefreshTokenEnc,
		ExpiresAt:       toPgTime(a.ExpiresAt),
	})
	if err != nil {
		return domain.Account{}, err
	}
	return toDomain(m), nil
}

func (r *SQLCRepository) List(ctx context.Context, user uuid.UUID) ([]domain.Account, error) {
	rows, err := r.q.ListMailAccountsByUser(ctx, toPgUUID(user))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomain(m))
	}
	return out, nil
}

func (r *SQLCRepository) First(ctx context.Context, user uuid.UUID, provider domain.Provider) (domain.Account, error) {
	m, err := r.q.GetMailAccountForUser(ctx, db.GetMailAccountForUserParams{UserID: toPgUUID(user), Column2: string(provider)})
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	return toDomain(m), nil
}

func (r *SQLCRepository) Delete(ctx context.Context, user, id uuid.UUID) error {
	n, err := r.q.DeleteMailAccount(ctx, db.DeleteMailAccountParams{ID: toPgUUID(id), UserID: toPgUUID(user)})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("mail account")
	}
	return nil
}

// RefreshLocked serializes token refreshes per account with SELECT ... FOR
// UPDATE. Concurrent callers queue on the lock and see the winner's tokens.
func (r *SQLCRepository) RefreshLocked(ctx context.Context, id uuid.UUID, fn domain.LockedFunc) (domain.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := r.q.WithTx(tx)
	m, err := q.GetMailAccountForUpdate(ctx, toPgUUID(id))
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	current := toDomain(m)

	next, err := fn(current)
	if err != nil {
		return domain.Account{}, err
	}
	if next == nil {
		return current, tx.Commit(ctx)
	}
	m, err = q.UpdateMailAccountTokens(ctx, db.UpdateMailAccountTokensParams{
		ID:              toPgUUID(id),
		AccessTokenEnc:  next.AccessTokenEnc,
		RefreshTokenEnc: next.RefreshTokenEnc,
		ExpiresAt:       toPgTime(next.ExpiresAt),
	})
	if err != nil {
		return domain.Account{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("commit: %w", err)
	}
	return toDomain(m), nil
}
