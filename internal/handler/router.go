package handler

import (
	xhttp "SignalHub/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router registers a set of handlers on one echo instance.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
