package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/findata/be-report-approval/internal/client"
	"github.com/findata/be-report-approval/internal/config"
	"github.com/findata/be-report-approval/internal/database"
	"github.com/findata/be-report-approval/internal/handler"
	"github.com/findata/be-report-approval/internal/logger"
	"github.com/findata/be-report-approval/internal/middleware"
	"github.com/findata/be-report-approval/internal/repository"
	"github.com/findata/be-report-approval/internal/service"
	"github.com/findata/be-report-approval/internal/warehouse"
)

func main() {
	// Load configuration (.env is optional)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Report Approval Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize warehouse connection
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to warehouse")
	}
	defer db.Close()
	log.Info().Msg("Warehouse connection established")

	// Initialize repositories
	candidateRepo := repository.NewCandidateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	exportRepo := repository.NewExportRepository(db)

	// Initialize query executor and view manager
	executor := warehouse.NewExecutor(db, cfg.Warehouse.PreviewLimit)
	views := warehouse.NewViewManager(db, cfg.Warehouse.ViewSchema)

	// Initialize notification publisher (disabled when no NATS URL is set)
	var natsConn *nats.Conn
	if cfg.Nats.URL != "" {
		natsConn, err = nats.Connect(cfg.Nats.URL)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, notifications disabled")
			natsConn = nil
		} else {
			defer natsConn.Close()
			log.Info().Str("url", cfg.Nats.URL).Msg("NATS connection established")
		}
	}
	notifier := client.NewNotificationPublisher(natsConn, cfg.Nats.SubjectPrefix, log.Logger)

	// Initialize services
	approvalService := service.NewApprovalService(
		candidateRepo, auditRepo, exportRepo, executor, views, notifier, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(approvalService, candidateRepo, exportRepo, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Candidate routes
	mux.HandleFunc("/api/v1/candidates", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListCandidates(w, r)
		case http.MethodPost:
			httpHandler.CreateCandidate(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/candidates/get", requireMethod(http.MethodGet, httpHandler.GetCandidate))
	mux.HandleFunc("/api/v1/candidates/preview", requireMethod(http.MethodPost, httpHandler.Preview))
	mux.HandleFunc("/api/v1/candidates/peek", requireMethod(http.MethodGet, httpHandler.PeekDataset))
	mux.HandleFunc("/api/v1/candidates/approve", requireMethod(http.MethodPost, httpHandler.Approve))
	mux.HandleFunc("/api/v1/candidates/reject", requireMethod(http.MethodPost, httpHandler.Reject))
	mux.HandleFunc("/api/v1/candidates/audit", requireMethod(http.MethodGet, httpHandler.AuditTrail))
	mux.HandleFunc("/api/v1/exports", requireMethod(http.MethodGet, httpHandler.ListExports))

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// requireMethod rejects requests with the wrong HTTP method.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
