package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	UploadsTotal       uint64
	JobsQueued         uint64
	JobsRunning        uint64
	JobsCompleted      uint64
	JobsFailed         uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

// IncrementSuccess increments successful request counter
func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

// IncrementFailed increments failed request counter
func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// IncrementUploads increments completed upload counter
func IncrementUploads() {
	atomic.AddUint64(&globalMetrics.UploadsTotal, 1)
}

// IncrementJobsQueued increments queued analysis job counter
func IncrementJobsQueued() {
	atomic.AddUint64(&globalMetrics.JobsQueued, 1)
}

// IncrementJobsRunning increments running analysis job counter
func IncrementJobsRunning() {
	atomic.AddUint64(&globalMetrics.JobsRunning, 1)
}

// DecrementJobsRunning decrements running analysis job counter
func DecrementJobsRunning() {
	atomic.AddUint64(&globalMetrics.JobsRunning, ^uint64(0))
}

// IncrementJobsCompleted increments completed analysis job counter
func IncrementJobsCompleted() {
	atomic.AddUint64(&globalMetrics.JobsCompleted, 1)
}

// IncrementJobsFailed increments failed analysis job counter
func IncrementJobsFailed() {
	atomic.AddUint64(&globalMetrics.JobsFailed, 1)
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"uploads_total":        atomic.LoadUint64(&globalMetrics.UploadsTotal),
		"jobs_queued":          atomic.LoadUint64(&globalMetrics.JobsQueued),
		"jobs_running":         atomic.LoadUint64(&globalMetrics.JobsRunning),
		"jobs_completed":       atomic.LoadUint64(&globalMetrics.JobsCompleted),
		"jobs_failed":          atomic.LoadUint64(&globalMetrics.JobsFailed),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
