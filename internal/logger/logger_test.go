package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Component(newWithWriter("production", &buf), "webhook")
	l.Debug().Msg("hidden")
	l.Info().Str("invoice_id", "abc").Msg("dispatched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "dispatched", line["message"])
	assert.Equal(t, "webhook", line["component"])
	assert.Equal(t, "autoinvoice", line["service"])
	assert.Equal(t, "abc", line["invoice_id"])
}

func TestNew_DevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter("dev", &buf)
	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
