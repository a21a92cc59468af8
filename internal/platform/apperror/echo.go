package apperror

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// JSON writes err as {"error": message} with the mapped status. Validation
// errors also carry the offending field.
func JSON(c echo.Context, err error) error {
	status := HTTPStatus(err)
	var ve ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		return c.JSON(status, map[string]string{"error": ve.Message, "field": ve.Field})
	}
	if status >= 500 {
		c.Logger().Errorf("request failed: %v", err)
	}
	return c.JSON(status, map[string]string{"error": Message(err)})
}
