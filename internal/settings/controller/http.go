package controller

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	rl "github.com/autoinvoice/autoinvoice/internal/platform/ratelimit"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
	sdomain "github.com/autoinvoice/autoinvoice/internal/settings/domain"
)

// Controller exposes the session owner's invoicing and mailer preferences.
// Only whitelisted keys are readable or writable.
type Controller struct {
	repo            sdomain.Repository
	service         sdomain.Service
	defaultCurrency string
	// Injected concerns
	jwtMW   echo.MiddlewareFunc
	rlStore rl.Store
	pub     evdomain.Publisher
}

func New(repo sdomain.Repository, service sdomain.Service, defaultCurrency string) *Controller {
	return &Controller{repo: repo, service: service, defaultCurrency: defaultCurrency}
}

// Register mounts settings endpoints under /api/v1.
func (h *Controller) Register(e *echo.Echo) {
	// Defaults: GET 60/min, PUT 10/min, overridable per owner.
	getPolicy := h.policy("settings:get", 60, sdomain.KeyRLSettingsGetLimit, sdomain.KeyRLSettingsGetWindow)
	putPolicy := h.policy("settings:put", 10, sdomain.KeyRLSettingsPutLimit, sdomain.KeyRLSettingsPutWindow)

	var getRL, putRL echo.MiddlewareFunc
	if h.rlStore != nil {
		getRL = rl.MiddlewareWithStore(getPolicy, h.rlStore)
		putRL = rl.MiddlewareWithStore(putPolicy, h.rlStore)
	} else {
		getRL = rl.Middleware(getPolicy)
		putRL = rl.Middleware(putPolicy)
	}

	getMW := []echo.MiddlewareFunc{}
	putMW := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		getMW = append(getMW, h.jwtMW)
		putMW = append(putMW, h.jwtMW)
	}
	getMW = append(getMW, getRL)
	putMW = append(putMW, putRL)

	e.GET("/api/v1/settings", h.getSettings, getMW...)
	e.PUT("/api/v1/settings", h.putSettings, putMW...)
}

func (h *Controller) policy(name string, defLimit int, limitKey, windowKey string) rl.Policy {
	return rl.Policy{
		Name:   name,
		Window: time.Minute,
		Limit:  defLimit,
		Key: func(c echo.Context) string {
			owner, _ := amw.OwnerID(c)
			return name + ":own:" + owner.String()
		},
		WindowFunc: func(c echo.Context) time.Duration {
			owner, ok := amw.OwnerID(c)
			if !ok {
				return time.Minute
			}
			d, _ := h.service.GetDuration(c.Request().Context(), windowKey, &owner, time.Minute)
			return d
		},
		LimitFunc: func(c echo.Context) int {
			owner, ok := amw.OwnerID(c)
			if !ok {
				return defLimit
			}
			n, _ := h.service.GetInt(c.Request().Context(), limitKey, &owner, defLimit)
			return n
		},
	}
}

// WithJWT injects a JWT middleware for these endpoints.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

// WithRateLimit injects a shared Store for distributed rate limiting.
func (h *Controller) WithRateLimit(store rl.Store) *Controller { h.rlStore = store; return h }

// WithPublisher injects an audit event publisher.
func (h *Controller) WithPublisher(p evdomain.Publisher) *Controller { h.pub = p; return h }

type settingsResponse struct {
	Currency   string `json:"currency"`
	DueDays    int    `json:"due_days"`
	SenderName string `json:"sender_name"`
}

type putSettingsRequest struct {
	Currency   *string `json:"currency" validate:"omitempty,currency"`
	DueDays    *int    `json:"due_days" validate:"omitempty,min=0,max=365"`
	SenderName *string `json:"sender_name" validate:"omitempty,max=100"`
}

// Get Settings godoc
// @Summary      Get owner settings
// @Description  Returns the effective invoicing and mailer preferences for the session owner
// @Tags         settings
// @Produce      json
// @Success      200  {object}  settingsResponse
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/settings [get]
func (h *Controller) getSettings(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	cur, _ := h.service.GetString(ctx, sdomain.KeyInvoiceCurrency, &owner, h.defaultCurrency)
	due, _ := h.service.GetInt(ctx, sdomain.KeyInvoiceDueDays, &owner, sdomain.DefaultDueDays)
	sender, _ := h.service.GetString(ctx, sdomain.KeyMailerSender, &owner, "")
	return c.JSON(http.StatusOK, settingsResponse{Currency: cur, DueDays: due, SenderName: sender})
}

// Put Settings godoc
// @Summary      Update owner settings
// @Description  Upserts whitelisted preferences for the session owner. Omitted fields are left unchanged.
// @Tags         settings
// @Accept       json
// @Param        body  body   putSettingsRequest  true  "settings"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/settings [put]
func (h *Controller) putSettings(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var req putSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	ctx := c.Request().Context()

	updates := []settingUpdate{
		{sdomain.KeyInvoiceCurrency, req.Currency},
		{sdomain.KeyMailerSender, trimmed(req.SenderName)},
	}
	if req.DueDays != nil {
		v := strconv.Itoa(*req.DueDays)
		updates = append(updates, settingUpdate{sdomain.KeyInvoiceDueDays, &v})
	}

	changed := make([]string, 0, len(updates))
	for _, u := range updates {
		if u.value == nil {
			continue
		}
		if err := h.repo.Upsert(ctx, u.key, &owner, *u.value, false); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
		}
		changed = append(changed, u.key)
	}
	if h.pub != nil && len(changed) > 0 {
		_ = h.pub.Publish(ctx, evdomain.Event{
			Type:    evdomain.TypeSettingsUpdated,
			OwnerID: owner,
			Meta:    map[string]string{"changed": strings.Join(changed, ",")},
			Time:    time.Now(),
		})
	}
	return c.NoContent(http.StatusNoContent)
}

type settingUpdate struct {
	key   string
	value *string
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
