package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoinvoice/autoinvoice/internal/events/domain"
)

func TestLogger_Publish(t *testing.T) {
	var buf bytes.Buffer
	owner, inv := uuid.New(), uuid.New()
	pub := NewLogger(zerolog.New(&buf))

	require.NoError(t, pub.Publish(context.Background(), domain.Event{
		Type:      domain.TypeInvoiceSent,
		OwnerID:   owner,
		SubjectID: inv,
		Meta:      map[string]string{"number": "INV-1"},
	}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["stream"])
	assert.Equal(t, "invoice.sent", line["type"])
	assert.Equal(t, owner.String(), line["owner_id"])
	assert.Equal(t, inv.String(), line["subject_id"])
	assert.Equal(t, map[string]any{"number": "INV-1"}, line["meta"])
}
