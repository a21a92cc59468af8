package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	db "github.com/autoinvoice/autoinvoice/internal/db/sqlc"
)

type SQLCRepository struct{ q *db.Queries }

func New(pg *pgxpool.Pool) *SQLCRepository { return &SQLCRepository{q: db.New(pg)} }

func toPgUUIDPtr(u *uuid.UUID) pgtype.UUID {
	if u == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *u, Valid: true}
}

func (r *SQLCRepository) Get(ctx context.Context, key string, ownerID *uuid.UUID) (string, bool, error) {
	if ownerID != nil {
		row, err := r.q.GetAppSettingByKeyOwner(ctx, db.GetAppSettingByKeyOwnerParams{Key: key, OwnerID: toPgUUIDPtr(ownerID)})
		if err == nil {
			return row.Value, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, err
		}
	}
	row, err := r.q.GetAppSettingGlobal(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (r *SQLCRepository) Upsert(ctx context.Context, key string, ownerID *uuid.UUID, value string, secret bool) error {
	id := uuid.New()
	return r.q.UpsertAppSetting(ctx, db.UpsertAppSettingParams{
		ID:       pgtype.UUID{Bytes: id, Valid: true},
		OwnerID:  toPgUUIDPtr(ownerID),
		Key:      key,
		Value:    value,
		IsSecret: secret,
	})
}
