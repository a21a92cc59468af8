package customers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	ctrl "github.com/autoinvoice/autoinvoice/internal/customers/controller"
	repo "github.com/autoinvoice/autoinvoice/internal/customers/repository"
	svc "github.com/autoinvoice/autoinvoice/internal/customers/service"
)

// Register wires the customers module and registers HTTP routes.
func Register(e *echo.Echo, pg *pgxpool.Pool, auth echo.MiddlewareFunc) {
	r := repo.New(pg)
	s := svc.New(r)
	c := ctrl.New(s, auth)
	c.Register(e)
}
