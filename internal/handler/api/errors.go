package api

import (
	"encoding/json"
	"errors"
	"io"

	"SignalHub/internal/domain/models"
	xhttp "SignalHub/pkg/http"

	"github.com/labstack/echo/v4"
)

// errorResponse maps domain errors onto the HTTP error envelope.
func errorResponse(c echo.Context, err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return xhttp.BadRequestResponse(c, violations(verr.Violations))
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("price sources unavailable").WithError(err))
	default:
		return xhttp.AppErrorResponse(c, err)
	}
}

func violations(vs []models.Violation) []xhttp.ValidationError {
	out := make([]xhttp.ValidationError, 0, len(vs))
	for _, v := range vs {
		out = append(out, xhttp.ValidationError{Code: v.Code, Field: v.Field, Message: v.Message})
	}
	return out
}

// decodeBody reads a JSON body regardless of the declared content type.
// Alert services often post JSON as text/plain.
func decodeBody(c echo.Context, v interface{}) []xhttp.ValidationError {
	err := json.NewDecoder(c.Request().Body).Decode(v)
	if err == nil {
		return nil
	}
	msg := "malformed JSON body: " + err.Error()
	if errors.Is(err, io.EOF) {
		msg = "request body is required"
	}
	return []xhttp.ValidationError{{Code: "ERR_MALFORMED", Message: msg}}
}
