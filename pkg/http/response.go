package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Respond writes the APIResponse envelope. The body status always mirrors the HTTP status.
func Respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return Respond(c, http.StatusOK, data)
}

// BadRequestResponse is used with the validation errors from ReadAndValidateRequest.
func BadRequestResponse(c echo.Context, details interface{}) error {
	return Respond(c, http.StatusBadRequest, details)
}

// AppErrorResponse sends an *AppError found in err's chain with its own status.
// Any other error becomes an opaque 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return Respond(c, http.StatusInternalServerError, "internal error")
	}
	return Respond(c, appErr.Status, []*AppError{appErr})
}
