package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edulens/quizfeedback-api/internal/config"
	"github.com/edulens/quizfeedback-api/internal/database"
	"github.com/edulens/quizfeedback-api/internal/handler"
	"github.com/edulens/quizfeedback-api/internal/repository"
	"github.com/edulens/quizfeedback-api/internal/router"
	"github.com/edulens/quizfeedback-api/internal/service"
	"github.com/edulens/quizfeedback-api/internal/store"
	"github.com/edulens/quizfeedback-api/pkg/ai"
	"github.com/edulens/quizfeedback-api/pkg/retrieval"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	validate := validator.New(validator.WithRequiredStructEnabled())

	workbook, err := store.Open(cfg.WorkbookPath, validate, logger)
	if err != nil {
		log.Fatalf("failed to open workbook: %v", err)
	}

	completer, err := ai.NewOpenAICompleter(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.CompletionModel,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create completion client: %v", err)
	}

	retriever, err := retrieval.NewClient(retrieval.Config{
		PineconeAPIKey: cfg.PineconeAPIKey,
		IndexName:      cfg.PineconeIndex,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
		ScoreThreshold: cfg.ScoreThreshold,
		Logger:         logger,
	}, completer)
	if err != nil {
		log.Fatalf("failed to create retrieval client: %v", err)
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
	}

	quizRepo := repository.NewQuizRepository(workbook)
	feedbackService := service.NewFeedbackService(quizRepo, completer, cfg.PastPerformanceLimit, logger)
	queryService := service.NewQueryService(retriever, completer, cache, cfg.AnswerCacheTTL, cfg.RetrievalTopK, logger)

	queryHandler := handler.NewQueryHandler(queryService, validate, logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	router.Register(app, cfg, router.Dependencies{
		QueryHandler:    queryHandler,
		FeedbackHandler: feedbackHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, workbook, logger)
}

func waitForShutdown(app *fiber.App, workbook *store.Workbook, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	// Feedback written through the API lives in memory until this point.
	if err := workbook.Save(); err != nil {
		logger.Error().Err(err).Msg("failed to save workbook on shutdown")
	}

	log.Println("server stopped")
}
