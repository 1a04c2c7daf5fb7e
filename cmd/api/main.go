package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/repo-analyzer-api/internal/application"
	apjobs "github.com/bryanwahyu/repo-analyzer-api/internal/application/jobs"
	apuploads "github.com/bryanwahyu/repo-analyzer-api/internal/application/uploads"
	"github.com/bryanwahyu/repo-analyzer-api/internal/config"
	domai "github.com/bryanwahyu/repo-analyzer-api/internal/domain/ai"
	domjobs "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
	gitrunner "github.com/bryanwahyu/repo-analyzer-api/internal/infra/analyzer/git"
	aiopenai "github.com/bryanwahyu/repo-analyzer-api/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/repo-analyzer-api/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/repo-analyzer-api/internal/infra/db/postgres"
	"github.com/bryanwahyu/repo-analyzer-api/internal/infra/httpserver"
	"github.com/bryanwahyu/repo-analyzer-api/internal/infra/jobstore"
	minioStore "github.com/bryanwahyu/repo-analyzer-api/internal/infra/storage"
	"github.com/bryanwahyu/repo-analyzer-api/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// init object store
	store, err := minioStore.New(ctx,
		cfg.Storage.Endpoint,
		cfg.Storage.Region,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.UseSSL,
		cfg.Storage.Provider,
		cfg.Storage.PublicDomain,
	)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	bucket := cfg.Storage.Bucket
	if bucket == "" {
		bucket = apuploads.FallbackBucket
	}
	region := cfg.Storage.Region
	if region == "" {
		region = apuploads.FallbackRegion
	}
	if err := store.EnsureBucket(ctx, bucket, region); err != nil {
		log.Fatalf("storage bucket error: %v", err)
	}

	// init job repository
	checkers := map[string]middleware.HealthChecker{"storage": store}
	var repo domjobs.Repository
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		repo = mysqlp.NewJobRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		repo = postgresp.NewJobRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		// Jobs won't survive a restart; only for development.
		log.Printf("no database driver configured, using in-memory job store")
		repo = jobstore.NewMemory()
	}

	// optional AI summarizer
	var summarizer domai.Summarizer
	if cfg.Analyzer.OpenAIKey != "" {
		summarizer = aiopenai.NewClient(cfg.Analyzer.OpenAIKey, cfg.Analyzer.OpenAIModel)
	}

	// init services
	uploadsSvc := &apuploads.Service{
		Store:         store,
		Clock:         application.SystemClock{},
		DefaultBucket: cfg.Storage.Bucket,
		DefaultRegion: cfg.Storage.Region,
	}
	jobsSvc := &apjobs.Service{
		Repo:       repo,
		Runner:     gitrunner.NewRunner(),
		Artifacts:  store,
		Summarizer: summarizer,
		Clock:      application.SystemClock{},
		Bucket:     bucket,
		Region:     region,
	}
	jobsSvc.Start(cfg.Analyzer.Workers)

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(30, 10))
	mux.Mount("/", httpserver.NewRouter(uploadsSvc, jobsSvc, httpserver.Options{
		APIKey:      cfg.Auth.APIKey,
		Environment: cfg.Auth.Environment,
		Checkers:    checkers,
	}))

	port := cfg.Server.Port
	if port == 0 {
		port = 3000
	}
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("Repo Analyzer API running on port %d", port)
		log.Printf("Upload endpoint: http://localhost:%d/upload", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	// drain in-flight analysis jobs
	jobsSvc.Stop()
}
