package settings

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	rl "github.com/autoinvoice/autoinvoice/internal/platform/ratelimit"
	ctrl "github.com/autoinvoice/autoinvoice/internal/settings/controller"
	repo "github.com/autoinvoice/autoinvoice/internal/settings/repository"
	svc "github.com/autoinvoice/autoinvoice/internal/settings/service"
)

// Register wires the settings module and registers HTTP routes. The returned
// service is shared with modules that read per-owner preferences.
func Register(e *echo.Echo, pg *pgxpool.Pool, defaultCurrency string, jwt echo.MiddlewareFunc, store rl.Store, pub evdomain.Publisher) *svc.Service {
	r := repo.New(pg)
	s := svc.New(r)
	c := ctrl.New(r, s, defaultCurrency)
	c.WithJWT(jwt).WithRateLimit(store).WithPublisher(pub)
	c.Register(e)
	return s
}
