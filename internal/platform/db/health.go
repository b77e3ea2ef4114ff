package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolHealth is the response body of the database health endpoint.
type PoolHealth struct {
	Status        string `json:"status"`
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
	Error         string `json:"error,omitempty"`
}

// HealthHandler answers readiness probes with a ping and pool statistics.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stat := pool.Stat()
		health := PoolHealth{
			Status:        "healthy",
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, health)
		}
		return c.JSON(http.StatusOK, health)
	}
}
