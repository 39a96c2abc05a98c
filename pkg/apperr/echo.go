package apperr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTP converts a service error into an echo HTTP error. Classified errors
// expose their message to the client; everything else is masked.
func ToHTTP(err error) error {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
