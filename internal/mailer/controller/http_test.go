package controller

import (
	"context"
	"encoding/base64"
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

	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	domain "github.com/autoinvoice/autoinvoice/internal/mailer/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
)

const secret = "s3cret"

type fakeService struct {
	tokenErr error
	sendErr  error
	lastSend domain.SendRequest
	events   []domain.Event
	expires  time.Time
}

func (f *fakeService) Token(_ context.Context, user uuid.UUID, p madomain.Provider) (domain.Token, error) {
	if f.tokenErr != nil {
		return domain.Token{}, f.tokenErr
	}
	if p == "" {
		p = madomain.ProviderGmail
	}
	return domain.Token{Provider: p, From: "owner@example.com", AccessToken: "tok-" + user.String(), ExpiresAt: &f.expires}, nil
}

func (f *fakeService) Send(_ context.Context, req domain.SendRequest) error {
	f.lastSend = req
	return f.sendErr
}

func (f *fakeService) Event(_ context.Context, ev domain.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func newServer(svc domain.Service) *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	New(svc, secret).WithRateLimit(nil, 3, time.Minute).Register(e)
	return e
}

func get(e *echo.Echo, query, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/mailer/token?"+query, nil)
	if sig != "" {
		req.Header.Set(signature.Header, sig)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(signature.Header, signature.Sign(secret, []byte(body)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestToken_SignedRequest(t *testing.T) {
	svc := &fakeService{expires: time.Unix(1_900_000_000, 0)}
	e := newServer(svc)
	user := uuid.New()
	q := "user_id=" + user.String() + "&provider=m365"

	rec := get(e, q, signature.Sign(secret, []byte(q)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"provider":"m365","from":"owner@example.com","access_token":"tok-`+user.String()+`","expires_at":1900000000}`, rec.Body.String())
}

func TestToken_SignatureRequired(t *testing.T) {
	e := newServer(&fakeService{})
	q := "user_id=" + uuid.NewString()

	for name, sig := range map[string]string{
		"missing":     "",
		"wrong key":   signature.Sign("other", []byte(q)),
		"other bytes": signature.Sign(secret, []byte(q+"&provider=gmail")),
	} {
		t.Run(name, func(t *testing.T) {
			rec := get(e, q, sig)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.JSONEq(t, `{"error":"bad_signature"}`, rec.Body.String())
		})
	}

	// An unconfigured secret rejects everything.
	e = echo.New()
	New(&fakeService{}, "").Register(e)
	rec := get(e, q, signature.Sign("", []byte(q)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestToken_Errors(t *testing.T) {
	cases := []struct {
		name  string
		query string
		err   error
		code  int
		body  string
	}{
		{"missing user", "provider=gmail", nil, http.StatusBadRequest, `{"error":"missing user_id"}`},
		{"bad user", "user_id=42", nil, http.StatusBadRequest, `{"error":"invalid user_id"}`},
		{"no account", "user_id=" + uuid.NewString(), apperror.NotFound("mail account"), http.StatusNotFound, `{"error":"no_mail_account"}`},
		{"refresh failed", "user_id=" + uuid.NewString(), apperror.RefreshFailedError{Provider: "gmail"}, http.StatusBadGateway, `{"error":"token_refresh_failed"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newServer(&fakeService{tokenErr: tc.err})
			rec := get(e, tc.query, signature.Sign(secret, []byte(tc.query)))
			assert.Equal(t, tc.code, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func sendBody(user uuid.UUID, extra string) string {
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	return `{"user_id":"` + user.String() + `","to":"client@example.com","subject":"INV-1","html":"<p>hi</p>","from":"owner@example.com","pdf_name":"INV-1.pdf","pdf_base64":"` + pdf + `"` + extra + `}`
}

func TestSend_OK(t *testing.T) {
	svc := &fakeService{}
	e := newServer(svc)
	user := uuid.New()

	rec := post(e, "/api/mailer/send", sendBody(user, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, user, svc.lastSend.UserID)
	assert.Equal(t, madomain.ProviderGmail, svc.lastSend.Provider)
	assert.Equal(t, []byte("%PDF-1.4"), svc.lastSend.Message.PDF)
	assert.Equal(t, "INV-1.pdf", svc.lastSend.Message.PDFName)
}

func TestSend_Errors(t *testing.T) {
	user := uuid.New()

	svc := &fakeService{sendErr: apperror.NotFound("gmail account")}
	rec := post(newServer(svc), "/api/mailer/send", sendBody(user, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no_gmail_account"}`, rec.Body.String())

	svc = &fakeService{sendErr: apperror.UpstreamError{Service: "gmail", StatusCode: 400, Detail: `{"error":{"code":400}}`}}
	rec = post(newServer(svc), "/api/mailer/send", sendBody(user, ""))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gmail_send_failed", body["error"])
	assert.Equal(t, `{"error":{"code":400}}`, body["detail"])

	svc = &fakeService{sendErr: apperror.UpstreamError{Service: "m365", StatusCode: 401, Detail: "denied"}}
	rec = post(newServer(svc), "/api/mailer/send", sendBody(user, `,"provider":"m365"`))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "m365_send_failed")

	rec = post(newServer(&fakeService{}), "/api/mailer/send", `{"user_id":"nope","to":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_id")

	rec = post(newServer(&fakeService{}), "/api/mailer/send", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents_Acknowledged(t *testing.T) {
	svc := &fakeService{}
	e := newServer(svc)

	rec := post(e, "/api/mailer/events", `{"user_id":"u1","type":"delivered","id":"m1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Len(t, svc.events, 1)
	assert.Equal(t, "delivered", svc.events[0].Type)
}

func TestRateLimit_PerUser(t *testing.T) {
	e := newServer(&fakeService{})
	user := uuid.New()
	q := "user_id=" + user.String()
	sig := signature.Sign(secret, []byte(q))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get(e, q, sig).Code)
	}
	rec := get(e, q, sig)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another user has their own bucket.
	other := "user_id=" + uuid.NewString()
	assert.Equal(t, http.StatusOK, get(e, other, signature.Sign(secret, []byte(other))).Code)
}
