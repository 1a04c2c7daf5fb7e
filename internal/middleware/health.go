package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker defines interface for readiness probing
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a plain function to HealthChecker
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker checks database health
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// ReadyStatus represents the aggregate readiness result
type ReadyStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual check status
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReadinessHandler runs all named probes and reports 503 when any fails.
// The plain /health endpoint stays independent of dependencies; this one is
// for load balancers that must not route before the store and DB answer.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ready := ReadyStatus{
			Status:    "ready",
			Timestamp: time.Now(),
			Checks:    make(map[string]CheckStatus),
		}

		for name, checker := range checkers {
			if err := checker.Check(ctx); err != nil {
				ready.Status = "unavailable"
				ready.Checks[name] = CheckStatus{
					Status:  "unavailable",
					Message: err.Error(),
				}
			} else {
				ready.Checks[name] = CheckStatus{
					Status: "ready",
				}
			}
		}

		statusCode := http.StatusOK
		if ready.Status != "ready" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(ready)
	}
}
