package http

import (
	"context"
	"errors"
	"fmt"

	"SignalHub/pkg/validation"

	"github.com/labstack/echo/v4"
)

// ReadAndValidateRequest reads and validates request body.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return []ValidationError{{
				Code:    "ERR_MALFORMED",
				Message: fmt.Sprintf("%v", he.Message),
			}}
		}
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}
	return ValidateStruct(c.Request().Context(), req)
}

// ValidateStruct applies defaults, normalisation and validation rules to an already decoded value.
func ValidateStruct(ctx context.Context, req interface{}) []ValidationError {
	fieldErrs := validation.Struct(ctx, req)
	if len(fieldErrs) == 0 {
		return nil
	}
	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Code:    fe.Code,
			Field:   fe.Field,
			Message: fe.Message,
			Params:  fe.Params,
		})
	}
	return errs
}
