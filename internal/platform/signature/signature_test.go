package signature

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestSign_DeterministicAndByteSensitive(t *testing.T) {
	body := []byte(`{"invoice_id":"1","total_amount":"246.00"}`)
	a := Sign("s3cret", body)
	b := Sign("s3cret", body)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	flipped := []byte(`{"invoice_id":"1","total_amount":"246.01"}`)
	assert.NotEqual(t, a, Sign("s3cret", flipped))
}

func TestVerify(t *testing.T) {
	body := []byte("user_id=42&provider=gmail")
	sig := Sign("s3cret", body)

	assert.True(t, Verify("s3cret", body, sig))
	assert.True(t, Verify("s3cret", body, strings.ToUpper(sig)))
	assert.False(t, Verify("other", body, sig))
	assert.False(t, Verify("s3cret", append(body, ' '), sig))
	assert.False(t, Verify("", body, Sign("", body)))
	assert.False(t, Verify("s3cret", body, ""))
	assert.False(t, Verify("s3cret", body, "not-hex"))
}

func newSignedEcho(secret string) *echo.Echo {
	e := echo.New()
	g := e.Group("/api/mailer", Middleware(secret))
	g.GET("/token", func(c echo.Context) error {
		return c.String(http.StatusOK, c.QueryParam("user_id"))
	})
	g.POST("/send", func(c echo.Context) error {
		b, _ := io.ReadAll(c.Request().Body)
		return c.String(http.StatusOK, string(b))
	})
	return e
}

func TestMiddleware_GetSignsRawQuery(t *testing.T) {
	e := newSignedEcho("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/mailer/token?user_id=7&provider=gmail", nil)
	req.Header.Set(Header, Sign("s3cret", []byte("user_id=7&provider=gmail")))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())

	// Reordered parameters are a different byte string.
	req = httptest.NewRequest(http.MethodGet, "/api/mailer/token?provider=gmail&user_id=7", nil)
	req.Header.Set(Header, Sign("s3cret", []byte("user_id=7&provider=gmail")))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"bad_signature"}`, rec.Body.String())
}

func TestMiddleware_PostRestoresBody(t *testing.T) {
	e := newSignedEcho("s3cret")
	body := `{"user_id":7,"to":"a@example.com"}`

	req := httptest.NewRequest(http.MethodPost, "/api/mailer/send", strings.NewReader(body))
	req.Header.Set(Header, Sign("s3cret", []byte(body)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String())
}

func TestMiddleware_RejectsMissingOrUnconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/mailer/send", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	newSignedEcho("s3cret").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/mailer/send", strings.NewReader("{}"))
	req.Header.Set(Header, Sign("", []byte("{}")))
	rec = httptest.NewRecorder()
	newSignedEcho("").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
