package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: health checks for
// orchestrators and the websocket upgrade, which carries no Authorization
// header from browsers.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/ws":        true,
}

// AuthSkipper reports whether the request's path skips authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path is a public infrastructure endpoint.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
