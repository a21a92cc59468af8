package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	"github.com/autoinvoice/autoinvoice/internal/config"
	evsvc "github.com/autoinvoice/autoinvoice/internal/events/service"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
	sdomain "github.com/autoinvoice/autoinvoice/internal/settings/domain"
	ssvc "github.com/autoinvoice/autoinvoice/internal/settings/service"
)

type memRepo map[string]string

func repoKey(key string, ownerID *uuid.UUID) string {
	if ownerID == nil {
		return "global/" + key
	}
	return ownerID.String() + "/" + key
}

func (m memRepo) Get(_ context.Context, key string, ownerID *uuid.UUID) (string, bool, error) {
	if v, ok := m[repoKey(key, ownerID)]; ok {
		return v, true, nil
	}
	v, ok := m[repoKey(key, nil)]
	return v, ok, nil
}

func (m memRepo) Upsert(_ context.Context, key string, ownerID *uuid.UUID, value string, _ bool) error {
	m[repoKey(key, ownerID)] = value
	return nil
}

func setup(t *testing.T) (*echo.Echo, memRepo, *evsvc.Recorder, config.Config) {
	t.Helper()
	cfg := config.Config{JWTSigningKey: "test-key"}
	repo := memRepo{}
	rec := &evsvc.Recorder{}
	e := echo.New()
	e.Validator = validation.New()
	New(repo, ssvc.New(repo), "PLN").WithJWT(amw.NewJWT(cfg)).WithPublisher(rec).Register(e)
	return e, repo, rec, cfg
}

func call(t *testing.T, e *echo.Echo, cfg config.Config, owner uuid.UUID, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	tok, _, err := amw.MintToken(cfg, owner, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(method, "/api/v1/settings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSettings_GET_Defaults(t *testing.T) {
	e, _, _, cfg := setup(t)
	rec := call(t, e, cfg, uuid.New(), http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"currency":"PLN","due_days":14,"sender_name":""}`, rec.Body.String())
}

func TestSettings_PUT_PerOwner(t *testing.T) {
	e, repo, events, cfg := setup(t)
	owner, other := uuid.New(), uuid.New()

	rec := call(t, e, cfg, owner, http.MethodPut, `{"currency":"EUR","due_days":30,"sender_name":"  Acme Billing "}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, "EUR", repo[repoKey(sdomain.KeyInvoiceCurrency, &owner)])
	assert.Equal(t, "30", repo[repoKey(sdomain.KeyInvoiceDueDays, &owner)])
	assert.Equal(t, "Acme Billing", repo[repoKey(sdomain.KeyMailerSender, &owner)])
	assert.Equal(t, []string{"settings.updated"}, events.Types())

	rec = call(t, e, cfg, owner, http.MethodGet, "")
	var got settingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, settingsResponse{Currency: "EUR", DueDays: 30, SenderName: "Acme Billing"}, got)

	rec = call(t, e, cfg, other, http.MethodGet, "")
	assert.Contains(t, rec.Body.String(), `"currency":"PLN"`)
}

func TestSettings_PUT_Validation(t *testing.T) {
	e, repo, events, cfg := setup(t)
	rec := call(t, e, cfg, uuid.New(), http.MethodPut, `{"currency":"euro","due_days":400}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body validation.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "currency")
	assert.Contains(t, body.Fields, "due_days")
	assert.Empty(t, repo)
	assert.Empty(t, events.Types())
}

func TestSettings_RequiresSession(t *testing.T) {
	e, _, _, _ := setup(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
