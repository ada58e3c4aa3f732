// Package main is the entry point for the support assistant API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/config"
	"github.com/novera/support-assistant/internal/handler"
	"github.com/novera/support-assistant/internal/llm"
	"github.com/novera/support-assistant/internal/middleware"
	natsclient "github.com/novera/support-assistant/internal/nats"
	"github.com/novera/support-assistant/internal/service"
	"github.com/novera/support-assistant/internal/store"
	"github.com/novera/support-assistant/pkg/logger"
	"github.com/novera/support-assistant/pkg/tracing"
)

func main() {
	// Load .env in development, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting support assistant API")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	nats, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer nats.Close()

	// Ensure the audit stream exists
	streamManager := natsclient.NewStreamManager(nats)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Session store: Redis when configured, in-memory otherwise
	var sessions store.SessionStore
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Error("failed to connect to Redis", zap.Error(err))
			os.Exit(1)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Warn("REDIS_URL not set, sessions are in-memory only")
		sessions = store.NewMemoryStore()
	}

	// Initialize LLM client
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == "openai" && cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	default:
		log.Error("no LLM API key configured")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Deployment registry
	registry := service.NewDeploymentRegistry()
	if cfg.RegistrySeedFile != "" {
		if err := registry.LoadFile(cfg.RegistrySeedFile); err != nil {
			log.Error("failed to load registry seed", zap.Error(err))
			os.Exit(1)
		}
	}

	// Initialize services
	conversationSvc := service.NewConversationService(sessions, llmClient, streamManager, log, cfg.ChatModel)
	classifySvc := service.NewClassificationService(llmClient, streamManager, log, cfg.ChatModel)

	// Initialize handlers
	var storePinger handler.Pinger
	if redisStore != nil {
		storePinger = redisStore
	}
	healthHandler := handler.NewHealthHandler(nats, storePinger)
	chatHandler := handler.NewChatHandler(conversationSvc, log)
	classifyHandler := handler.NewClassifyHandler(classifySvc, log)
	deploymentHandler := handler.NewDeploymentHandler(registry, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(middleware.UserRateLimit(cfg.RateLimitUserRequests, cfg.RateLimitWindow))

		// Writes require the write scope; listings only need a valid token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope("support:write"))

			r.Post("/chat", chatHandler.Start)
			r.Post("/chat/{id}", chatHandler.Continue)
			r.Post("/classify", classifyHandler.Classify)
		})

		r.Get("/projects/{projectID}/deployments", deploymentHandler.List)
		r.Get("/deployments/{id}/products", deploymentHandler.Products)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
