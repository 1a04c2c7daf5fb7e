package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	apjobs "github.com/bryanwahyu/repo-analyzer-api/internal/application/jobs"
	apuploads "github.com/bryanwahyu/repo-analyzer-api/internal/application/uploads"
	domjobs "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
	"github.com/bryanwahyu/repo-analyzer-api/internal/middleware"
)

const (
	apiVersion = "0.1.0"

	// maxUploadBytes bounds the multipart read (10 MiB).
	maxUploadBytes = 10 << 20
)

type Router struct {
	uploadsSvc *apuploads.Service
	jobsSvc    *apjobs.Service
}

// Options carries the HTTP-surface configuration the router owns.
type Options struct {
	APIKey      string
	Environment string
	Checkers    map[string]middleware.HealthChecker
}

func NewRouter(uploadsSvc *apuploads.Service, jobsSvc *apjobs.Service, opts Options) http.Handler {
	r := &Router{uploadsSvc: uploadsSvc, jobsSvc: jobsSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"status":  "error",
			"message": fmt.Sprintf("Method not allowed. Use %s.", allowedMethod(req.URL.Path)),
		})
	})

	mux.Get("/", r.handleWelcome)
	mux.Get("/health", r.handleHealth)
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.With(middleware.APIKeyAuth(opts.APIKey, opts.Environment)).
		Post("/upload", r.wrap(r.handleUpload))

	mux.Post("/api/analyze", r.wrapAPI(r.handleAnalyze))
	mux.Get("/api/status", r.wrapAPI(r.handleStatus))

	return mux
}

// statusError pins an HTTP status to an error flowing up from a handler.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func httpErrorf(code int, format string, args ...any) error {
	return &statusError{code: code, err: fmt.Errorf(format, args...)}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// statusFor maps an error to its response code.
func statusFor(err error) int {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return se.code
	case errors.Is(err, domjobs.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, domjobs.ErrEmptyRepoURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// wrap renders handler errors in the upload-surface shape: {"error": ...}
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		}
	}
}

// wrapAPI renders handler errors in the /api surface shape:
// {"status":"error","message": ...}
func (r *Router) wrapAPI(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeJSON(w, statusFor(err), map[string]string{
				"status":  "error",
				"message": err.Error(),
			})
		}
	}
}

// GET /
func (r *Router) handleWelcome(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to Repo Analyzer API!",
		"version": apiVersion,
		"status":  "success",
	})
}

// GET /health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /upload
// Multipart form with a single "file" field; bucket/region/key come from
// query or form values. Exactly one store write happens on success.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return httpErrorf(http.StatusBadRequest, "No file uploaded")
	}
	defer req.MultipartForm.RemoveAll()

	files := req.MultipartForm.File["file"]
	if len(files) == 0 {
		return httpErrorf(http.StatusBadRequest, "No file uploaded")
	}
	// Policy: when multiple parts share the field name, the last one wins.
	fh := files[len(files)-1]

	key := req.FormValue("key")
	if err := middleware.ValidateObjectKey(key); err != nil {
		return httpErrorf(http.StatusBadRequest, "invalid key: %v", err)
	}

	f, err := fh.Open()
	if err != nil {
		return httpErrorf(http.StatusBadRequest, "No file uploaded")
	}
	defer f.Close()

	result, err := r.uploadsSvc.Upload(req.Context(), apuploads.UploadCommand{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
		Size:        fh.Size,
		Bucket:      req.FormValue("bucket"),
		Region:      req.FormValue("region"),
		Key:         key,
	})
	if err != nil {
		return err
	}

	middleware.IncrementUploads()
	writeJSON(w, http.StatusOK, result)
	return nil
}

// POST /api/analyze
// Body: {"repo_url": "...", "branch": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		RepoURL string `json:"repo_url"`
		Branch  string `json:"branch"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return httpErrorf(http.StatusBadRequest, "Invalid JSON body")
	}
	if body.RepoURL == "" {
		return httpErrorf(http.StatusBadRequest, "Repository URL is required")
	}
	if err := middleware.ValidateRepoURL(body.RepoURL); err != nil {
		return httpErrorf(http.StatusBadRequest, "%v", err)
	}
	if err := middleware.ValidateBranch(body.Branch); err != nil {
		return httpErrorf(http.StatusBadRequest, "%v", err)
	}

	job, err := r.jobsSvc.Enqueue(req.Context(), body.RepoURL, body.Branch)
	if err != nil {
		return err
	}

	middleware.IncrementJobsQueued()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  job.Status,
		"job_id":  job.ID,
		"message": job.Message,
	})
	return nil
}

// GET /api/status?job_id=...
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	jobID := req.URL.Query().Get("job_id")
	if jobID == "" {
		return httpErrorf(http.StatusBadRequest, "Missing job_id parameter")
	}

	job, err := r.jobsSvc.Status(req.Context(), domjobs.ID(jobID))
	if err != nil {
		if errors.Is(err, domjobs.ErrNotFound) {
			return httpErrorf(http.StatusNotFound, "Job not found")
		}
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   job.Status,
		"job_id":   job.ID,
		"progress": job.Progress,
		"message":  job.Message,
	})
	return nil
}

func allowedMethod(path string) string {
	switch path {
	case "/upload", "/api/analyze":
		return "POST"
	default:
		return "GET"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
