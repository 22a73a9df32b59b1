package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/edulens/quizfeedback-api/internal/config"
	"github.com/edulens/quizfeedback-api/internal/repository"
	"github.com/edulens/quizfeedback-api/internal/service"
	"github.com/edulens/quizfeedback-api/internal/store"
	"github.com/edulens/quizfeedback-api/pkg/ai"
)

func main() {
	courseID := pflag.Int64("course", 0, "course identifier (required)")
	userID := pflag.Int64("user", 0, "user identifier (required)")
	limit := pflag.Int("limit", 0, "maximum submissions to process (0 = all eligible)")
	workbookPath := pflag.String("workbook", "", "workbook path (overrides configuration)")
	pflag.Parse()

	if *courseID <= 0 || *userID <= 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *workbookPath != "" {
		cfg.WorkbookPath = *workbookPath
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	os.Exit(run(cfg, *courseID, *userID, *limit, logger))
}

// run is split from main so the deferred workbook save executes on every exit
// path before the process exit code is decided.
func run(cfg config.Config, courseID, userID int64, limit int, logger zerolog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New(validator.WithRequiredStructEnabled())

	workbook, err := store.Open(cfg.WorkbookPath, validate, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open workbook")
		return 1
	}

	// Feedback already written stays intact even when the run aborts midway.
	defer func() {
		if err := workbook.Save(); err != nil {
			logger.Error().Err(err).Msg("failed to save workbook")
		}
	}()

	completer, err := ai.NewOpenAICompleter(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.CompletionModel,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create completion client")
		return 1
	}

	quizRepo := repository.NewQuizRepository(workbook)
	feedbackService := service.NewFeedbackService(quizRepo, completer, cfg.PastPerformanceLimit, logger)

	report, err := feedbackService.GenerateFeedback(ctx, courseID, userID, limit)
	if err != nil {
		logger.Error().Err(err).
			Int("attempted", report.Attempted).
			Int("updated", report.Updated).
			Msg("feedback run aborted")
		return 1
	}

	logger.Info().
		Int("attempted", report.Attempted).
		Int("updated", report.Updated).
		Int("skipped", len(report.Skipped)).
		Msg("feedback run finished")

	return 0
}
