package ratelimit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/autoinvoice/autoinvoice/internal/metrics"
)

// Policy defines a simple fixed-window rate limit.
// Limit requests within Window per derived key.
type Policy struct {
	// Name is a short identifier for the limited endpoint, used for logging/metrics (e.g. "mailer:send").
	Name   string
	Window time.Duration
	Limit  int
	// Optional dynamic resolvers (if provided, override Window/Limit per request)
	WindowFunc func(echo.Context) time.Duration
	LimitFunc  func(echo.Context) int
	// Key builds the bucket key for this request.
	Key func(echo.Context) string
}

// Store abstracts a shared counter store (e.g., Redis) for fixed-window limiting.
type Store interface {
	// Allow increments the counter for the key in the given window and returns whether the request is allowed.
	// If not allowed, retryAfterSec indicates seconds until the window resets.
	Allow(ctx echo.Context, key string, limit int, window time.Duration) (allowed bool, retryAfterSec int, err error)
}

func (p Policy) resolve(c echo.Context) (key string, limit int, window time.Duration) {
	key = "global"
	if p.Key != nil {
		key = p.Key(c)
	}
	window, limit = p.Window, p.Limit
	if p.WindowFunc != nil {
		if w := p.WindowFunc(c); w > 0 {
			window = w
		}
	}
	if p.LimitFunc != nil {
		if l := p.LimitFunc(c); l > 0 {
			limit = l
		}
	}
	return key, limit, window
}

func withDefaults(p Policy) Policy {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	return p
}

// Middleware returns an Echo middleware enforcing the provided Policy using an in-memory fixed window.
// This is process-local; multi-instance deployments use MiddlewareWithStore.
func Middleware(p Policy) echo.MiddlewareFunc {
	return MiddlewareWithStore(p, NewMemoryStore())
}

// MiddlewareWithStore enforces p against a shared Store. Store errors fail open.
func MiddlewareWithStore(p Policy, s Store) echo.MiddlewareFunc {
	p = withDefaults(p)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, lim, win := p.resolve(c)
			allowed, retryAfter, err := s.Allow(c, key, lim, win)
			if err != nil || allowed {
				return next(c)
			}
			src := "ip"
			if strings.Contains(key, ":user:") {
				src = "user"
			}
			metrics.IncRateLimitExceeded(p.Name, src)
			c.Logger().Warnf("rate limit exceeded: endpoint=%s key=%s limit=%d window=%s retry_after=%ds", p.Name, key, lim, win.String(), retryAfter)
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		}
	}
}

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

// NewMemoryStore returns a process-local Store.
func NewMemoryStore() Store {
	return &memoryStore{now: time.Now, buckets: make(map[string]*bucket)}
}

func (m *memoryStore) Allow(_ echo.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		m.buckets[key] = &bucket{start: now, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	remaining := window - now.Sub(b.start)
	return false, int((remaining + time.Second - 1) / time.Second), nil
}

// KeyUserOrIP buckets by the user_id the caller acts for, read from the query
// string or a JSON body, and falls back to the client IP.
func KeyUserOrIP(prefix string) func(echo.Context) string {
	return func(c echo.Context) string {
		user := c.QueryParam("user_id")
		req := c.Request()
		if user == "" && req.Body != nil && strings.Contains(strings.ToLower(req.Header.Get("Content-Type")), "application/json") {
			buf, _ := io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(buf))
			var tmp struct {
				UserID any `json:"user_id"`
			}
			if json.Unmarshal(buf, &tmp) == nil && tmp.UserID != nil {
				user = fmt.Sprint(tmp.UserID)
			}
		}
		if user == "" {
			return prefix + ":ip:" + c.RealIP()
		}
		return prefix + ":user:" + user
	}
}
