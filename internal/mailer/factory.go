package mailer

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/autoinvoice/autoinvoice/internal/config"
	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	ctrl "github.com/autoinvoice/autoinvoice/internal/mailer/controller"
	svc "github.com/autoinvoice/autoinvoice/internal/mailer/service"
	rl "github.com/autoinvoice/autoinvoice/internal/platform/ratelimit"
	sdomain "github.com/autoinvoice/autoinvoice/internal/settings/domain"
)

// Register wires the mailer token/relay API behind the shared-secret
// signature and a per-user rate limit.
func Register(e *echo.Echo, cfg config.Config, log zerolog.Logger, accounts madomain.Repository, creds svc.Credentials, settings sdomain.Service, pub evdomain.Publisher, store rl.Store) *svc.Service {
	s := svc.New(accounts, creds, svc.NewRouter(cfg), log).
		WithSettings(settings).
		WithPublisher(pub)
	ctrl.New(s, cfg.HMACSharedSecret).
		WithRateLimit(store, cfg.MailerRateLimit, cfg.MailerRateWindow).
		Register(e)
	return s
}
