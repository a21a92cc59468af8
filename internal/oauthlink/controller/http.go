package controller

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	"github.com/autoinvoice/autoinvoice/internal/oauthlink/state"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

// Linker is the vault side of the consent flow.
type Linker interface {
	AuthCodeURL(p madomain.Provider, state string) (string, error)
	Link(ctx context.Context, user uuid.UUID, p madomain.Provider, code string) (madomain.Account, error)
}

// Controller lets the session owner connect, list and disconnect mailboxes.
type Controller struct {
	linker   Linker
	states   state.Store
	accounts madomain.Repository
	auth     echo.MiddlewareFunc
	pub      evdomain.Publisher
}

func New(linker Linker, states state.Store, accounts madomain.Repository, auth echo.MiddlewareFunc) *Controller {
	return &Controller{linker: linker, states: states, accounts: accounts, auth: auth}
}

// WithPublisher injects an audit event publisher.
func (h *Controller) WithPublisher(p evdomain.Publisher) *Controller { h.pub = p; return h }

func (h *Controller) Register(e *echo.Echo) {
	o := e.Group("/oauth", h.auth)
	o.GET("/:provider/start", h.start)
	o.GET("/:provider/callback", h.callback)

	api := e.Group("/api/v1", h.auth)
	api.GET("/mail-accounts", h.list)
	api.DELETE("/mail-accounts/:id", h.unlink)
}

// pathProviders maps URL segments to stored provider names.
var pathProviders = map[string]madomain.Provider{
	"google": madomain.ProviderGmail,
	"gmail":  madomain.ProviderGmail,
	"m365":   madomain.ProviderM365,
}

func provider(c echo.Context) (madomain.Provider, bool) {
	p, ok := pathProviders[c.Param("provider")]
	return p, ok
}

func (h *Controller) start(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	p, ok := provider(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown provider"})
	}
	tok, err := state.GenerateToken()
	if err != nil {
		return apperror.JSON(c, err)
	}
	if err := h.states.Create(c.Request().Context(), &state.State{Token: tok, UserID: owner, Provider: string(p)}); err != nil {
		return apperror.JSON(c, err)
	}
	target, err := h.linker.AuthCodeURL(p, tok)
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.Redirect(http.StatusFound, target)
}

func (h *Controller) callback(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	p, ok := provider(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown provider"})
	}
	if denied := c.QueryParam("error"); denied != "" {
		return c.Redirect(http.StatusFound, "/settings/mailer?error="+url.QueryEscape(denied))
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing code"})
	}

	ctx := c.Request().Context()
	st, err := h.states.GetAndDelete(ctx, c.QueryParam("state"))
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid state"})
		}
		return apperror.JSON(c, err)
	}
	if st.UserID != owner || st.Provider != string(p) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid state"})
	}

	acct, err := h.linker.Link(ctx, owner, p, code)
	if err != nil {
		return apperror.JSON(c, err)
	}
	if h.pub != nil {
		_ = h.pub.Publish(ctx, evdomain.Event{
			Type:      evdomain.TypeMailAccountLinked,
			OwnerID:   owner,
			SubjectID: acct.ID,
			Meta:      map[string]string{"provider": string(p), "email": acct.Email},
			Time:      time.Now().UTC(),
		})
	}
	return c.Redirect(http.StatusFound, "/settings/mailer?connected="+string(p))
}

type accountResp struct {
	ID        string     `json:"id"`
	Provider  string     `json:"provider"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// List Mail Accounts godoc
// @Summary      List linked mailboxes
// @Tags         mail-accounts
// @Produce      json
// @Success      200  {array}  accountResp
// @Security     BearerAuth
// @Router       /api/v1/mail-accounts [get]
func (h *Controller) list(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	rows, err := h.accounts.List(c.Request().Context(), owner)
	if err != nil {
		return apperror.JSON(c, err)
	}
	out := make([]accountResp, 0, len(rows))
	for _, a := range rows {
		out = append(out, accountResp{ID: a.ID.String(), Provider: string(a.Provider), Email: a.Email, ExpiresAt: a.ExpiresAt, CreatedAt: a.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) unlink(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.accounts.Delete(c.Request().Context(), owner, id); err != nil {
		return apperror.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
