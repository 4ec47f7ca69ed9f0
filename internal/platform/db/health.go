package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// HealthHandler serves the database leg of the health surface. The payload
// mirrors the service's top-level /health shape, with pool counters attached
// so a stuck pool is visible without psql access.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unavailable",
				"error":  err.Error(),
				"pool":   poolCounters(pool),
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"pool":   poolCounters(pool),
		})
	}
}

func poolCounters(pool *pgxpool.Pool) map[string]interface{} {
	stat := pool.Stat()
	return map[string]interface{}{
		"total":    stat.TotalConns(),
		"idle":     stat.IdleConns(),
		"acquired": stat.AcquiredConns(),
		"max":      stat.MaxConns(),
	}
}
