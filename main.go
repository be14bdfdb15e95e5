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

	"go.uber.org/zap"

	"github.com/xiaot623/smartdoc/internal/adapter/llm"
	"github.com/xiaot623/smartdoc/internal/catalog"
	"github.com/xiaot623/smartdoc/internal/config"
	"github.com/xiaot623/smartdoc/internal/hub"
	"github.com/xiaot623/smartdoc/internal/logging"
	"github.com/xiaot623/smartdoc/internal/policy"
	"github.com/xiaot623/smartdoc/internal/repository"
	"github.com/xiaot623/smartdoc/internal/service"
	internalhttp "github.com/xiaot623/smartdoc/internal/transport/http"
	"github.com/xiaot623/smartdoc/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting smartdoc",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("llm_provider", cfg.LLMProvider),
	)

	// Initialize call journal
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize model client
	gen, err := llm.NewGenerator(ctx, llm.Options{
		Provider:      cfg.LLMProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		GeminiBaseURL: cfg.GeminiBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		Timeout:       cfg.LLMTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize model client", zap.Error(err))
	}
	assistant := llm.NewAssistant(gen, cfg.LLMTimeout, logger)
	logger.Info("model client ready", zap.String("model", assistant.Model()))

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	// Initialize hub
	streamHub := hub.NewHub(logger)
	go streamHub.Run(ctx)

	// Initialize service
	svc := service.New(db, assistant, policyEngine, streamHub, cfg, logger)

	// Create Echo server
	e := internalhttp.NewServer(
		svc,
		catalog.New(db),
		ws.NewServer(cfg, streamHub, svc, logger),
		fmt.Sprintf("%dB", cfg.MaxUploadBytes+(1<<20)),
		logger,
	)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	logger.Info("HTTP server started", zap.Int("port", cfg.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down smartdoc")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown HTTP server gracefully", zap.Error(err))
	}
	cancel()

	logger.Info("smartdoc stopped")
}
