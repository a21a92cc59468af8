package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestMiddleware_BlocksAfterLimit(t *testing.T) {
	e := echo.New()
	e.GET("/token", okHandler, Middleware(Policy{Name: "mailer:token", Limit: 2, Window: time.Minute, Key: KeyUserOrIP("mailer:token")}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token?user_id=u1", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// A different user has its own bucket.
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token?user_id=u2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMemoryStore_WindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := &memoryStore{now: func() time.Time { return now }, buckets: map[string]*bucket{}}

	ok, _, _ := s.Allow(nil, "k", 1, time.Minute)
	assert.True(t, ok)
	ok, retry, _ := s.Allow(nil, "k", 1, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, 60, retry)

	now = now.Add(61 * time.Second)
	ok, _, _ = s.Allow(nil, "k", 1, time.Minute)
	assert.True(t, ok)
}

func TestKeyUserOrIP_ReadsJSONBodyAndRestoresIt(t *testing.T) {
	e := echo.New()
	body := `{"user_id":"6f1c","to":"x@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "mailer:send:user:6f1c", KeyUserOrIP("mailer:send")(c))

	var again struct {
		To string `json:"to"`
	}
	require.NoError(t, c.Bind(&again))
	assert.Equal(t, "x@example.com", again.To)
}

func TestKeyUserOrIP_FallsBackToIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "mailer:token:ip:10.1.2.3", KeyUserOrIP("mailer:token")(c))
}

type failingStore struct{}

func (failingStore) Allow(echo.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, assert.AnError
}

func TestMiddlewareWithStore_FailsOpen(t *testing.T) {
	e := echo.New()
	e.GET("/token", okHandler, MiddlewareWithStore(Policy{Name: "mailer:token", Limit: 1}, failingStore{}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRedisStore_Integration(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := rc.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { rc.Del(context.Background(), "rl:"+key) })

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	s := NewRedisStore(rc)

	ok, _, err := s.Allow(c, key, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, retry, err := s.Allow(c, key, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, 0)
}
