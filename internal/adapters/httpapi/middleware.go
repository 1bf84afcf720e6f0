package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// unmatchedRoute labels requests no route matched.
const unmatchedRoute = "unmatched"

// registerMiddlewares installs, outermost first: request ids, the request
// log, and panic recovery. Recovery sits inside the log so recovered panics
// are logged with their 500 status.
func registerMiddlewares(e *echo.Echo, h *Handler) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(h.requestLog)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			h.logger.Error("panic recovered",
				"path", c.Request().URL.Path,
				"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"error", err,
				"stack", string(stack),
			)
			return err
		},
	}))
}

func (h *Handler) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// Commit the error response now so the status below is final.
			c.Error(err)
		}
		elapsed := time.Since(start)
		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = unmatchedRoute
		}
		h.logger.Info("http",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"route", route,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		if h.observer != nil {
			h.observer.ObserveRequest(c.Request().Method, route, status, elapsed)
		}
		return nil
	}
}
