package invoices

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/autoinvoice/autoinvoice/internal/config"
	custrepo "github.com/autoinvoice/autoinvoice/internal/customers/repository"
	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	ctrl "github.com/autoinvoice/autoinvoice/internal/invoices/controller"
	repo "github.com/autoinvoice/autoinvoice/internal/invoices/repository"
	svc "github.com/autoinvoice/autoinvoice/internal/invoices/service"
	sdomain "github.com/autoinvoice/autoinvoice/internal/settings/domain"
	"github.com/autoinvoice/autoinvoice/internal/webhook"
)

// Register wires the invoices module (repository, webhook dispatcher,
// lifecycle service) and registers its HTTP routes.
func Register(e *echo.Echo, pg *pgxpool.Pool, cfg config.Config, log zerolog.Logger, auth echo.MiddlewareFunc, settings sdomain.Service, pub evdomain.Publisher) *svc.Service {
	d := webhook.New(cfg, log)
	if !d.Signed() {
		log.Warn().Msg("workflow webhook is unsigned; set HMAC_SHARED_SECRET")
	}
	s := svc.New(repo.New(pg), custrepo.New(pg), d, cfg, log).
		WithSettings(settings).
		WithPublisher(pub)
	ctrl.New(s, auth).Register(e)
	return s
}
