package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carelist/carelist/internal/platform/fhir"
)

// RequestTimeout sets a context deadline on each incoming request. When the
// deadline passes before the handler finishes, the request context is
// cancelled and the client gets a 504 with an OperationOutcome body.
//
// WebSocket connections (paths under /ws) are excluded because they are
// long-lived. The search engines all honor context cancellation, so an
// expired request stops its upstream work instead of running to completion.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, "/ws") {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					return gatewayTimeoutError(c)
				}
				// Client disconnects and other cancellations pass through.
				return ctx.Err()
			}
		}
	}
}

func gatewayTimeoutError(c echo.Context) error {
	if c.Response().Committed {
		return nil
	}
	outcome := fhir.NewOperationOutcome("error", "timeout", "request processing exceeded the allowed time limit")
	return c.JSON(http.StatusGatewayTimeout, outcome)
}
