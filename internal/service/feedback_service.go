package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/edulens/quizfeedback-api/internal/models"
	"github.com/edulens/quizfeedback-api/internal/prompt"
	"github.com/edulens/quizfeedback-api/internal/repository"
	"github.com/edulens/quizfeedback-api/pkg/ai"
)

var (
	feedbackUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizfeedback",
		Subsystem: "runs",
		Name:      "submissions_updated_total",
		Help:      "Number of submissions that received generated feedback",
	})

	feedbackSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizfeedback",
		Subsystem: "runs",
		Name:      "submissions_skipped_total",
		Help:      "Number of eligible submissions skipped due to failures",
	})
)

// FeedbackRunReport summarizes one generation run for operators.
type FeedbackRunReport struct {
	Attempted int     `json:"attempted"`
	Updated   int     `json:"updated"`
	Skipped   []int64 `json:"skipped,omitempty"`
}

// FeedbackService generates personalized quiz feedback for a student's
// eligible submissions and writes it back into the record store.
type FeedbackService interface {
	GenerateFeedback(ctx context.Context, courseID, userID int64, limit int) (FeedbackRunReport, error)
}

type feedbackService struct {
	repo      repository.QuizRepository
	completer ai.Completer
	pastLimit int
	logger    zerolog.Logger
}

// NewFeedbackService constructs the feedback generation pipeline.
func NewFeedbackService(repo repository.QuizRepository, completer ai.Completer, pastLimit int, logger zerolog.Logger) FeedbackService {
	if pastLimit <= 0 {
		pastLimit = repository.DefaultPastPerformanceLimit
	}
	return &feedbackService{
		repo:      repo,
		completer: completer,
		pastLimit: pastLimit,
		logger:    logger.With().Str("component", "feedback_service").Logger(),
	}
}

// GenerateFeedback runs the pipeline for one course and student: select
// eligible submissions, assemble each prompt from the combined quiz details
// and the student's past performance, call the model, and write feedback back.
// A failure on one submission skips it and the loop continues; only context
// cancellation aborts the run, leaving already written feedback intact.
func (s *feedbackService) GenerateFeedback(ctx context.Context, courseID, userID int64, limit int) (FeedbackRunReport, error) {
	tracer := otel.Tracer("github.com/edulens/quizfeedback-api/internal/service/feedback")
	ctx, span := tracer.Start(ctx, "feedback.generate")
	span.SetAttributes(
		attribute.Int64("feedback.course_id", courseID),
		attribute.Int64("feedback.user_id", userID),
	)
	defer span.End()

	eligible := s.repo.EligibleSubmissions(courseID, userID, limit)
	report := FeedbackRunReport{Attempted: len(eligible)}
	span.SetAttributes(attribute.Int("feedback.eligible", len(eligible)))

	if len(eligible) == 0 {
		s.logger.Info().Int64("course_id", courseID).Int64("user_id", userID).Msg("no submissions eligible for feedback")
		return report, nil
	}

	// Question/answer rows are fetched once per quiz and reused across the
	// run's submissions of that quiz.
	questionRows := make(map[int64][]models.QuestionAnswerRow)

	for _, submission := range eligible {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "run_cancelled")
			return report, fmt.Errorf("feedback run cancelled: %w", err)
		}

		if err := s.processSubmission(ctx, courseID, userID, submission, questionRows); err != nil {
			feedbackSkipped.Inc()
			report.Skipped = append(report.Skipped, submission.SubmissionID)
			s.logger.Error().Err(err).
				Int64("submission_id", submission.SubmissionID).
				Int64("quiz_id", submission.QuizID).
				Msg("skipping submission")
			continue
		}

		feedbackUpdated.Inc()
		report.Updated++
	}

	s.logger.Info().
		Int64("course_id", courseID).
		Int64("user_id", userID).
		Int("attempted", report.Attempted).
		Int("updated", report.Updated).
		Int("skipped", len(report.Skipped)).
		Msg("feedback run complete")

	return report, nil
}

func (s *feedbackService) processSubmission(ctx context.Context, courseID, userID int64, submission models.Submission, questionRows map[int64][]models.QuestionAnswerRow) error {
	rows, ok := questionRows[submission.QuizID]
	if !ok {
		rows = s.repo.QuestionAnswers(courseID, submission.QuizID)
		questionRows[submission.QuizID] = rows
	}

	questions := CombineQuestionsAndAnswers(rows, s.repo.UserAnswers(submission.SubmissionID))

	past := s.repo.PastPerformance(courseID, userID, *submission.DueDate, s.pastLimit)

	currentQuiz := prompt.CurrentQuizFragment(submission, questions)
	pastPerformance := prompt.PastPerformanceFragment(past)

	feedback, err := s.completer.GenerateResponse(ctx, prompt.FeedbackPrompt(currentQuiz, pastPerformance))
	if err != nil {
		return fmt.Errorf("generate feedback: %w", err)
	}

	if err := s.repo.UpdateFeedback(submission.SubmissionID, feedback); err != nil {
		return err
	}

	s.logger.Info().
		Int64("submission_id", submission.SubmissionID).
		Int64("quiz_id", submission.QuizID).
		Int("past_records", len(past)).
		Msg("feedback written")

	return nil
}
