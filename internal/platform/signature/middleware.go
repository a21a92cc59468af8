package signature

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autoinvoice/autoinvoice/internal/metrics"
)

// maxSignedBody caps how much of a request body is buffered for verification.
const maxSignedBody = 25 << 20

// Middleware rejects requests whose X-Signature does not match the HMAC of the
// raw query string (GET, HEAD) or the raw body (everything else). The body is
// restored so handlers can bind it afterwards.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			var payload []byte
			switch req.Method {
			case http.MethodGet, http.MethodHead:
				payload = []byte(req.URL.RawQuery)
			default:
				if req.Body != nil {
					buf, err := io.ReadAll(io.LimitReader(req.Body, maxSignedBody))
					if err != nil {
						return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
					}
					_ = req.Body.Close()
					req.Body = io.NopCloser(bytes.NewReader(buf))
					payload = buf
				}
			}

			if !Verify(secret, payload, req.Header.Get(Header)) {
				metrics.IncMailerSignatureFailure(c.Path())
				return c.JSON(http.StatusForbidden, map[string]string{"error": "bad_signature"})
			}
			return next(c)
		}
	}
}
