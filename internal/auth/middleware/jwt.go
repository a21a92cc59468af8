package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/autoinvoice/autoinvoice/internal/config"
)

const ctxOwnerIDKey = "auth_owner_id"

// NewJWT returns an Echo middleware that validates session JWTs issued by the
// identity service and stores the owner (the sub claim) in the context.
func NewJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")

			// Browser form posts carry the session in a cookie instead.
			if auth == "" && cfg.SessionCookieName != "" {
				if cookie, err := c.Cookie(cfg.SessionCookieName); err == nil && cookie.Value != "" {
					auth = "Bearer " + cookie.Value
				}
			}

			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			tokStr := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(tokStr, func(token *jwt.Token) (any, error) {
				return []byte(cfg.JWTSigningKey), nil
			}, jwt.WithLeeway(30*time.Second), jwt.WithIssuedAt(), jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			sub, err := tok.Claims.GetSubject()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid claims"})
			}
			owner, err := uuid.Parse(sub)
			if err != nil || owner == uuid.Nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid subject"})
			}

			c.Set(ctxOwnerIDKey, owner)
			return next(c)
		}
	}
}

// OwnerID returns the authenticated owner's ID from context.
func OwnerID(c echo.Context) (uuid.UUID, bool) {
	v := c.Get(ctxOwnerIDKey)
	if v == nil {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// MintToken issues a session token for owner. Used by operator tooling and tests.
func MintToken(cfg config.Config, owner uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": owner.String(),
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"iss": cfg.PublicBaseURL,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(cfg.JWTSigningKey))
	return signed, exp, err
}
