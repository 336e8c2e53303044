package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"settlement-periods/internal/audit"
	"settlement-periods/internal/auth"
	"settlement-periods/internal/jobs"
	"settlement-periods/internal/observability/metrics"
	"settlement-periods/internal/period/application"
	periodpostgres "settlement-periods/internal/period/infrastructure/postgres"
	periodhttp "settlement-periods/internal/period/interfaces/http"
	"settlement-periods/internal/settings"
	"settlement-periods/internal/statuscache"
	"settlement-periods/internal/workers"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	periodCfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatalf("period config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)
	settingsStore := settings.NewPostgresStore(db)
	statusText := statuscache.New()

	repo := periodpostgres.NewRepository(db)
	staging := periodpostgres.NewStaging(db)
	computer := periodpostgres.NewComputer(db)

	periodQueue := jobs.NewQueue("periods", periodCfg.QueueBuffer, periodCfg.JobTimeoutDuration(), logger)
	periodQueue.SetObserver(func(job string, err error, elapsed time.Duration) {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveJobRun(job, result, elapsed)
	})

	workerService, err := workers.NewService(settingsStore, logger)
	if err != nil {
		logger.Fatalf("worker service error: %v", err)
	}

	periodService, err := application.NewService(
		repo,
		staging,
		computer,
		periodQueue,
		workerService,
		settingsStore,
		statusText,
		periodCfg.StatusTextTTLDuration(),
		logger,
	)
	if err != nil {
		logger.Fatalf("period service error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	periodQueue.Start(ctx)
	defer periodQueue.Close()

	periodHandler := periodhttp.NewHandler(periodService, staging, auditRepo, logger)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/periods", authMiddleware.Wrap(periodHandler))
	mux.Handle("/api/v1/periods/", authMiddleware.Wrap(periodHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
