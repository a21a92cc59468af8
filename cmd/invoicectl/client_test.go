package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	"github.com/autoinvoice/autoinvoice/internal/config"
	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
)

const testSecret = "shared-secret"

func TestClient_MailerTokenIsSigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mailer/token", r.URL.Path)
		if !signature.Verify(testSecret, []byte(r.URL.RawQuery), r.Header.Get(signature.Header)) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"bad_signature"}`))
			return
		}
		assert.Equal(t, "m365", r.URL.Query().Get("provider"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"provider":"m365","from":"a@example.com","access_token":"tok","expires_at":1700000000}`))
	}))
	defer srv.Close()

	tok, err := NewClient(srv.URL, "", testSecret).MailerToken(uuid.NewString(), "m365")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", tok.From)
	require.NotNil(t, tok.ExpiresAt)
	assert.EqualValues(t, 1700000000, *tok.ExpiresAt)

	_, err = NewClient(srv.URL, "", "wrong").MailerToken(uuid.NewString(), "m365")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "bad_signature")
}

func TestClient_SendMailSignsBody(t *testing.T) {
	var got SendMail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, signature.Verify(testSecret, body, r.Header.Get(signature.Header)))
		assert.NoError(t, json.Unmarshal(body, &got))
		if got.To == "fail@example.com" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"gmail_send_failed","detail":"quota"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", testSecret)
	require.NoError(t, c.SendMail(SendMail{UserID: "u", To: "b@example.com", Subject: "Hi", PDFBase64: encodePDF([]byte("%PDF"))}))
	assert.Equal(t, "JVBERg==", got.PDFBase64)

	err := c.SendMail(SendMail{UserID: "u", To: "fail@example.com"})
	require.Error(t, err)
	assert.Equal(t, "API error (502): gmail_send_failed: quota", err.Error())
}

func TestClient_TransitionReturnsInvoiceOnFailedSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sess", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/invoices/1/send":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"id":"1","number":"INV-1","status":"DRAFT","last_error":"webhook returned 500"}`))
		case "/api/v1/invoices/2/mark-paid":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"Invoice cannot be marked paid while DRAFT."}`))
		default:
			_, _ = w.Write([]byte(`{"id":"3","number":"INV-3","status":"CANCELLED"}`))
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "sess", "")

	inv, err := c.Transition("1", "send")
	require.Error(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "DRAFT", inv.Status)
	assert.Contains(t, err.Error(), "webhook returned 500")

	inv, err = c.Transition("2", "mark-paid")
	require.Error(t, err)
	assert.Nil(t, inv)
	assert.Contains(t, err.Error(), "409")

	inv, err = c.Transition("3", "cancel")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", inv.Status)
}

func TestClient_ListInvoicesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SENT", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"1","number":"INV-1","status":"SENT"}],"total":21}`))
	}))
	defer srv.Close()

	items, total, err := NewClient(srv.URL, "sess", "").ListInvoices("SENT", 2, 20)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.EqualValues(t, 21, total)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	stdout = &out
	t.Cleanup(func() { stdout = os.Stdout })
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSignCommand(t *testing.T) {
	out, err := runCLI(t, "sign", "--secret", testSecret, "user_id=1")
	require.NoError(t, err)
	assert.Equal(t, signature.Sign(testSecret, []byte("user_id=1")), strings.TrimSpace(out))
}

func TestDevTokenCommand(t *testing.T) {
	t.Setenv("AUTOINVOICE_JWT_SIGNING_KEY", "dev-key")
	owner := uuid.New()
	out, err := runCLI(t, "dev-token", owner.String(), "--ttl", "1m")
	require.NoError(t, err)
	tok := strings.TrimSpace(out)

	// The minted token is accepted by the API middleware.
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, _ := amw.OwnerID(c)
		return c.String(http.StatusOK, id.String())
	}, amw.NewJWT(config.Config{JWTSigningKey: "dev-key"}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, owner.String(), rec.Body.String())
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcdefghwxyz"))
}

func TestClient_HealthDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","checks":{"postgres":"ok","redis":"down"}}`))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, "", "").Health()
	require.NoError(t, err)
	assert.Equal(t, "degraded", h["status"])
	assert.Equal(t, "down", h["checks"].(map[string]any)["redis"])
}
