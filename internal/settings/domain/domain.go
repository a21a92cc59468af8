package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service provides typed access to settings. A nil ownerID reads the global
// value; otherwise the owner's value wins and the global one is the fallback.
type Service interface {
	GetString(ctx context.Context, key string, ownerID *uuid.UUID, def string) (string, error)
	GetDuration(ctx context.Context, key string, ownerID *uuid.UUID, def time.Duration) (time.Duration, error)
	GetInt(ctx context.Context, key string, ownerID *uuid.UUID, def int) (int, error)
}

// Repository abstracts storage of app settings.
type Repository interface {
	// Get returns (value, found, err) for a key, preferring the owner's row.
	Get(ctx context.Context, key string, ownerID *uuid.UUID) (string, bool, error)
	// Upsert stores a key for an optional owner.
	Upsert(ctx context.Context, key string, ownerID *uuid.UUID, value string, secret bool) error
}

// Common keys
const (
	KeyInvoiceCurrency = "invoice.currency"
	KeyInvoiceDueDays  = "invoice.due_days"
	KeyMailerSender    = "mailer.sender_name"
)

// DefaultDueDays is the payment term applied when neither the owner nor the
// global settings define one.
const DefaultDueDays = 14

// Settings API rate limiting keys (optional, support owner overrides).
const (
	// GET /api/v1/settings
	KeyRLSettingsGetLimit  = "settings.ratelimit.get.limit"
	KeyRLSettingsGetWindow = "settings.ratelimit.get.window"
	// PUT /api/v1/settings
	KeyRLSettingsPutLimit  = "settings.ratelimit.put.limit"
	KeyRLSettingsPutWindow = "settings.ratelimit.put.window"
)
