package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

func TestMapErr(t *testing.T) {
	cases := map[string]struct {
		err   error
		field string
	}{
		"duplicate number": {&pgconn.PgError{Code: "23505", ConstraintName: "invoices_owner_number_key"}, "number"},
		"unknown customer": {&pgconn.PgError{Code: "23503"}, "customer_id"},
		"vat check":        {&pgconn.PgError{Code: "23514", ConstraintName: "invoice_items_vat_rate_check"}, "vat_rate"},
		"overflow":         {&pgconn.PgError{Code: "22003"}, "items"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var ve apperror.ValidationError
			require.True(t, errors.As(mapErr(tc.err), &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	assert.True(t, errors.Is(mapErr(pgx.ErrNoRows), apperror.ErrNotFound))
	other := errors.New("conn reset")
	assert.Equal(t, other, mapErr(other))
}
