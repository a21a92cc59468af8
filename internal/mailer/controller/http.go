package controller

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	domain "github.com/autoinvoice/autoinvoice/internal/mailer/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	rl "github.com/autoinvoice/autoinvoice/internal/platform/ratelimit"
	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
)

// Controller serves the workflow-facing mailer API. Every route requires an
// X-Signature made with the shared secret.
type Controller struct {
	svc    domain.Service
	secret string

	rlStore  rl.Store
	rlLimit  int
	rlWindow time.Duration
}

func New(svc domain.Service, secret string) *Controller {
	return &Controller{svc: svc, secret: secret, rlLimit: 120, rlWindow: time.Minute}
}

// WithRateLimit limits each route per user_id (or client IP) using store.
func (h *Controller) WithRateLimit(store rl.Store, limit int, window time.Duration) *Controller {
	h.rlStore = store
	if limit > 0 {
		h.rlLimit = limit
	}
	if window > 0 {
		h.rlWindow = window
	}
	return h
}

func (h *Controller) limit(name string) echo.MiddlewareFunc {
	p := rl.Policy{Name: name, Limit: h.rlLimit, Window: h.rlWindow, Key: rl.KeyUserOrIP(name)}
	if h.rlStore == nil {
		return rl.Middleware(p)
	}
	return rl.MiddlewareWithStore(p, h.rlStore)
}

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/mailer", signature.Middleware(h.secret))
	g.GET("/token", h.token, h.limit("mailer:token"))
	g.POST("/send", h.send, h.limit("mailer:send"))
	g.POST("/events", h.events, h.limit("mailer:events"))
}

type tokenResp struct {
	Provider    string `json:"provider"`
	From        string `json:"from"`
	AccessToken string `json:"access_token"`
	ExpiresAt   *int64 `json:"expires_at"`
}

// Mailer Token godoc
// @Summary      Fetch a valid mailbox access token
// @Description  Refreshes the token first when it has expired
// @Tags         mailer
// @Produce      json
// @Param        user_id   query  string  true   "User ID (UUID)"
// @Param        provider  query  string  false  "gmail or m365"
// @Success      200  {object}  tokenResp
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/mailer/token [get]
func (h *Controller) token(c echo.Context) error {
	raw := c.QueryParam("user_id")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user_id"})
	}
	user, err := uuid.Parse(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
	}
	tok, err := h.svc.Token(c.Request().Context(), user, madomain.Provider(c.QueryParam("provider")))
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no_mail_account"})
		case errors.Is(err, apperror.ErrRefreshFailed):
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "token_refresh_failed"})
		}
		return apperror.JSON(c, err)
	}
	resp := tokenResp{Provider: string(tok.Provider), From: tok.From, AccessToken: tok.AccessToken}
	if tok.ExpiresAt != nil {
		ts := tok.ExpiresAt.Unix()
		resp.ExpiresAt = &ts
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, resp)
}

type sendReq struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	Provider  string `json:"provider" validate:"omitempty,oneof=gmail m365"`
	To        string `json:"to" validate:"required,email"`
	Subject   string `json:"subject" validate:"max=998"`
	HTML      string `json:"html"`
	From      string `json:"from" validate:"omitempty,email"`
	PDFName   string `json:"pdf_name" validate:"max=255"`
	PDFBase64 string `json:"pdf_base64" validate:"omitempty,base64"`
}

// Mailer Send godoc
// @Summary      Relay an email with a PDF attachment
// @Tags         mailer
// @Accept       json
// @Produce      json
// @Param        body  body  sendReq  true  "message"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/mailer/send [post]
func (h *Controller) send(c echo.Context) error {
	var req sendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	pdf, err := base64.StdEncoding.DecodeString(req.PDFBase64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid pdf_base64"})
	}
	provider := madomain.Provider(req.Provider)
	if provider == "" {
		provider = madomain.ProviderGmail
	}

	err = h.svc.Send(c.Request().Context(), domain.SendRequest{
		UserID:   uuid.MustParse(req.UserID),
		Provider: provider,
		Message: domain.Message{
			To:      req.To,
			From:    req.From,
			Subject: req.Subject,
			HTML:    req.HTML,
			PDFName: req.PDFName,
			PDF:     pdf,
		},
	})
	if err != nil {
		var up apperror.UpstreamError
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no_" + string(provider) + "_account"})
		case errors.Is(err, apperror.ErrRefreshFailed):
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "token_refresh_failed"})
		case errors.As(err, &up):
			return c.JSON(http.StatusBadGateway, map[string]string{"error": string(provider) + "_send_failed", "detail": up.Detail})
		}
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

type eventReq struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	ID     string `json:"id"`
}

// events acknowledges provider or workflow delivery notifications. Bodies
// that do not parse are still acknowledged.
func (h *Controller) events(c echo.Context) error {
	var req eventReq
	_ = c.Bind(&req)
	if req.Type == "" {
		req.Type = "unknown"
	}
	if err := h.svc.Event(c.Request().Context(), domain.Event{UserID: req.UserID, Type: req.Type, ID: req.ID, IP: c.RealIP()}); err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
