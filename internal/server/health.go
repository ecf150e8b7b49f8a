package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const healthTimeout = 3 * time.Second

// handleHealth pings each backing dependency and reports per-dependency
// status. Any failing dependency turns the whole response into a 503.
func handleHealth(logger *slog.Logger, db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	type check struct {
		Status string `json:"status"`
	}

	deps := []struct {
		name string
		ping func(ctx context.Context) error
	}{
		{"sqlite", db.PingContext},
		{"redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]check, len(deps))
		for _, dep := range deps {
			if err := dep.ping(ctx); err != nil {
				logger.Error("health check failed", "name", dep.name, "error", err)
				checks[dep.name] = check{Status: "error"}
				status = http.StatusServiceUnavailable
				continue
			}
			checks[dep.name] = check{Status: "ok"}
		}

		writeJSON(w, status, checks)
	}
}
