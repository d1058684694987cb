package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/config"
	"github.com/chefmate-cloud/chefmate/internal/db"
	dbRedis "github.com/chefmate-cloud/chefmate/internal/db/redis"
	"github.com/chefmate-cloud/chefmate/internal/domain"
	logpkg "github.com/chefmate-cloud/chefmate/internal/logger"
	"github.com/chefmate-cloud/chefmate/internal/metrics"
	chatrepo "github.com/chefmate-cloud/chefmate/internal/repository/chat"
	reciperepo "github.com/chefmate-cloud/chefmate/internal/repository/recipe"
	chiTransport "github.com/chefmate-cloud/chefmate/internal/transport/chi"
	openaiTransport "github.com/chefmate-cloud/chefmate/internal/transport/openai"
	chatuc "github.com/chefmate-cloud/chefmate/internal/usecase/chat"
	generateuc "github.com/chefmate-cloud/chefmate/internal/usecase/generate"
	raguc "github.com/chefmate-cloud/chefmate/internal/usecase/rag"
	"github.com/chefmate-cloud/chefmate/internal/version"
)

func main() {
	// .env is optional; config values win over missing env vars anyway.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting chefmate API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("chat_provider", cfg.LLM.ChatProvider),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// The vector store is optional: with no addrs configured the service
	// runs without retrieval or persistence instead of failing at startup.
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer redisStore.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(context.Background(), readiness); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
		store = redisStore
	} else {
		logger.Warn("Vector store not configured, retrieval and persistence disabled")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	recipeProvider := buildProvider(cfg.LLM, cfg.LLM.Provider, logger)
	chatProvider := recipeProvider
	if cfg.LLM.ChatProvider != cfg.LLM.Provider {
		chatProvider = buildProvider(cfg.LLM, cfg.LLM.ChatProvider, logger)
	}
	logger.Info("LLM providers created",
		zap.String("recipe_provider", recipeProvider.Name()),
		zap.Bool("recipe_available", recipeProvider.IsAvailable()),
		zap.String("chat_provider", chatProvider.Name()),
		zap.Bool("chat_available", chatProvider.IsAvailable()),
	)

	// Repositories
	recipeRepo := reciperepo.New(reciperepo.Config{
		KeyPrefix:  cfg.Database.KeyPrefix,
		IndexName:  cfg.Database.IndexName,
		Dimensions: cfg.Embedding.Dimensions,
		TopK:       cfg.RAG.TopK,
		Threshold:  cfg.RAG.SimilarityThreshold,
		Text: reciperepo.TextPolicy{
			MaxTextLength:  cfg.Document.MaxTextLength,
			DishNameWeight: cfg.Document.DishNameWeight,
			CategoryWeight: cfg.Document.CategoryWeight,
		},
	}, store, embedder)

	if recipeRepo.IsAvailable() {
		if err := recipeRepo.EnsureIndex(context.Background()); err != nil {
			logger.Fatal("Failed to ensure vector index", zap.Error(err))
		}
		logger.Info("Vector index ready", zap.String("index", cfg.Database.IndexName))
	}

	chatHistory := chatrepo.New(chatrepo.Config{
		KeyPrefix:    cfg.Database.KeyPrefix,
		HistoryLimit: cfg.Chat.HistoryLimit,
		TTL:          time.Duration(cfg.Chat.HistoryTTLHours) * time.Hour,
	}, store)

	// Use case services
	ragSvc := raguc.New(recipeRepo, raguc.Config{
		TopK:         cfg.RAG.TopK,
		ContextLimit: cfg.RAG.ContextLimit,
	}, logger)

	genSvc := generateuc.New(recipeProvider, ragSvc, recipeRepo, generateuc.Config{
		Retries:        cfg.LLM.Retries,
		RequestTimeout: time.Duration(cfg.LLM.RequestTimeoutSec) * time.Second,
	}, logger)

	chatSvc := chatuc.New(chatProvider, chatHistory, recipeRepo, chatuc.Config{
		SessionTimeout: time.Duration(cfg.Chat.SessionTimeoutMin) * time.Minute,
	}, logger)

	// Session eviction runs until shutdown.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go chatSvc.Run(runCtx)

	// HTTP server
	server := chiTransport.NewServer(genSvc, recipeRepo, chatSvc, cfg.Database.IndexName, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildProvider creates the named LLM provider variant from its
// credentials block. Missing credentials never fail startup; the
// provider reports unavailability on invoke.
func buildProvider(llm config.LLMConfig, name string, logger *zap.Logger) domain.Provider {
	var creds config.ProviderCredentials
	var construct func(*openaiTransport.ProviderConfig) (*openaiTransport.Provider, error)
	switch name {
	case "openai":
		creds = llm.OpenAI
		construct = openaiTransport.NewOpenAI
	default:
		creds = llm.Gemini
		construct = openaiTransport.NewGemini
	}

	provider, err := construct(&openaiTransport.ProviderConfig{
		APIKey:          creds.APIKey,
		BaseURL:         creds.BaseURL,
		RecipeModel:     creds.RecipeModel,
		ChatModel:       creds.ChatModel,
		MaxOutputTokens: llm.MaxOutputTokens,
		Temperature:     llm.Temperature,
		ChatTemperature: llm.ChatTemperature,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Failed to create LLM provider", zap.String("provider", name), zap.Error(err))
	}
	return provider
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"error":   "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
