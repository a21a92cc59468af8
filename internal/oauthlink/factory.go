package oauthlink

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/autoinvoice/autoinvoice/internal/config"
	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	ctrl "github.com/autoinvoice/autoinvoice/internal/oauthlink/controller"
	"github.com/autoinvoice/autoinvoice/internal/oauthlink/state"
)

// Register wires mailbox linking with consent state kept in Redis.
func Register(e *echo.Echo, cfg config.Config, rc *redis.Client, linker ctrl.Linker, accounts madomain.Repository, auth echo.MiddlewareFunc, pub evdomain.Publisher) {
	states := state.NewRedisStore(rc, "oauth:state:", cfg.OAuthStateTTL)
	ctrl.New(linker, states, accounts, auth).WithPublisher(pub).Register(e)
}
