package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their query or json name, the names clients send.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// ReadAndValidateRequest binds query/body into req, fills `default` tags and validates it.
// It returns nil or a []ValidationError ready to be sent as a 400 body.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return validationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationErrors(err)
	}
	return nil
}

func validationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, fieldError(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_BAD_REQUEST", Message: msg}}
}

// tagMessages maps a validator tag to "<field> <text>", with %s taking the tag parameter.
var tagMessages = map[string]string{
	"required":  "is required",
	"uppercase": "must be upper case",
	"min":       "must be at least %s",
	"max":       "must be at most %s",
	"gt":        "must be greater than %s",
	"gte":       "must be %s or more",
	"lt":        "must be less than %s",
	"lte":       "must be %s or less",
	"oneof":     "must be one of: %s",
}

func fieldError(fe validator.FieldError) ValidationError {
	param := fe.Param()
	if fe.Tag() == "oneof" {
		param = strings.ReplaceAll(param, " ", ", ")
	}

	text, ok := tagMessages[fe.Tag()]
	switch {
	case !ok:
		text = "failed " + fe.Tag() + " validation"
	case strings.Contains(text, "%s"):
		text = fmt.Sprintf(text, param)
	}

	ve := ValidationError{
		Code:    "ERR_" + strings.ToUpper(fe.Tag()),
		Field:   fe.Field(),
		Message: fe.Field() + " " + text,
	}
	if fe.Param() != "" {
		ve.Params = map[string]interface{}{"param": fe.Param()}
	}
	return ve
}
