package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/adapters"
	"github.com/RAWENTERISLIVE/music-ai/adapters/llm"
	"github.com/RAWENTERISLIVE/music-ai/adapters/lyria"
	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
	"github.com/RAWENTERISLIVE/music-ai/internal/api"
	"github.com/RAWENTERISLIVE/music-ai/internal/config"
	"github.com/RAWENTERISLIVE/music-ai/internal/telemetry"
	"github.com/RAWENTERISLIVE/music-ai/internal/websocket"
	"github.com/RAWENTERISLIVE/music-ai/usecase"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("MUSIC_AI_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, closeLogs, err := telemetry.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLogs()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up telemetry", zap.Error(err))
	}

	// Initialize adapters
	generator, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create music generator", zap.Error(err))
	}
	suggester := newSuggester(ctx, cfg, logger)
	sessions := adapters.NewMemorySessionRepository(logger)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// Initialize usecase services
	generationService := usecase.NewGenerationService(generator, suggester, hub, tel, logger)
	chatService := usecase.NewChatService(sessions, generationService, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
	}))
	e.Use(middleware.BodyLimit(strconv.Itoa(cfg.Server.MaxUploadMB) + "M"))

	// Initialize API routes
	api.InitRoutes(e, &api.Handlers{
		Generation: generationService,
		Chat:       chatService,
		Hub:        hub,
		Metrics:    tel.MetricsHandler,
		Logger:     logger,
	})

	port := strconv.Itoa(cfg.Server.Port)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Music AI server started",
		zap.String("port", port),
		zap.String("model", generator.Model()),
		zap.String("environment", cfg.Environment))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newGenerator(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.MusicGenerator, error) {
	if cfg.UseMock() {
		logger.Warn("Using mock Lyria client; generated audio is synthetic")
		return lyria.NewMockLyriaClient(time.Duration(cfg.Lyria.MockLatencyMS)*time.Millisecond, logger), nil
	}

	return lyria.NewLyriaClient(ctx, lyria.LyriaConfig{
		ProjectID:       cfg.Lyria.ProjectID,
		Location:        cfg.Lyria.Location,
		Model:           cfg.Lyria.Model,
		CredentialsFile: cfg.Lyria.CredentialsFile,
		Timeout:         time.Duration(cfg.Lyria.TimeoutSeconds) * time.Second,
	}, logger)
}

func newSuggester(ctx context.Context, cfg config.Config, logger *zap.Logger) repositories.PromptSuggester {
	if cfg.Gemini.APIKey == "" {
		logger.Info("GEMINI_API_KEY not set, using static prompt suggestions")
		return llm.StaticSuggester{}
	}

	suggester, err := llm.NewGeminiSuggester(ctx, llm.GeminiConfig{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	}, logger)
	if err != nil {
		logger.Warn("Failed to create Gemini suggester, using static suggestions", zap.Error(err))
		return llm.StaticSuggester{}
	}
	return suggester
}
