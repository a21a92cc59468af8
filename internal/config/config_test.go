package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WEBHOOK_TIMEOUT", "")
	t.Setenv("DEFAULT_CURRENCY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 24*time.Second, cfg.ClaimTTL())
	assert.Equal(t, "PLN", cfg.DefaultCurrency)
	assert.Equal(t, "https://gmail.googleapis.com", cfg.GmailAPIBaseURL)
}

func TestMSEndpoints_UseTenant(t *testing.T) {
	t.Setenv("MS_TENANT", "contoso")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/token", cfg.MSTokenURL())
	assert.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/authorize", cfg.MSAuthURL())
}

func TestEncryptionKey(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 200)
	}

	for name, enc := range map[string]*base64.Encoding{
		"std":     base64.StdEncoding,
		"url":     base64.URLEncoding,
		"raw-url": base64.RawURLEncoding,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Config{TokenEncryptionKey: enc.EncodeToString(key)}.EncryptionKey()
			require.NoError(t, err)
			assert.Equal(t, key, got)
		})
	}

	_, err := Config{TokenEncryptionKey: base64.StdEncoding.EncodeToString([]byte("short"))}.EncryptionKey()
	assert.Error(t, err)
}

func TestValidate_DevelopmentAllowsUnsigned(t *testing.T) {
	cfg := Config{AppEnv: "development", WebhookTimeout: time.Second, DefaultCurrency: "PLN"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ProductionAggregatesProblems(t *testing.T) {
	cfg := Config{
		AppEnv:          "production",
		JWTSigningKey:   devSigningKey,
		WebhookTimeout:  0,
		DefaultCurrency: "PLN",
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.True(t, strings.Contains(msg, "WEBHOOK_TIMEOUT"))
	assert.True(t, strings.Contains(msg, "JWT_SIGNING_KEY"))
	assert.True(t, strings.Contains(msg, "HMAC_SHARED_SECRET"))
	assert.True(t, strings.Contains(msg, "TOKEN_ENCRYPTION_KEY"))
}

func TestValidate_ProductionUnsignedOptIn(t *testing.T) {
	cfg := Config{
		AppEnv:               "production",
		JWTSigningKey:        "real-key",
		WebhookTimeout:       12 * time.Second,
		WebhookAllowUnsigned: true,
		TokenEncryptionKey:   base64.StdEncoding.EncodeToString(make([]byte, 32)),
		DefaultCurrency:      "EUR",
	}
	assert.NoError(t, cfg.Validate())
}
