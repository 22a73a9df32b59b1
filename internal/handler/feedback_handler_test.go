package handler_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edulens/quizfeedback-api/internal/dto"
	"github.com/edulens/quizfeedback-api/internal/handler"
	"github.com/edulens/quizfeedback-api/internal/service"
)

type mockFeedbackService struct {
	lastCourse int64
	lastUser   int64
	lastLimit  int
	report     service.FeedbackRunReport
	err        error
}

func (m *mockFeedbackService) GenerateFeedback(_ context.Context, courseID, userID int64, limit int) (service.FeedbackRunReport, error) {
	m.lastCourse = courseID
	m.lastUser = userID
	m.lastLimit = limit
	return m.report, m.err
}

func newFeedbackApp(svc service.FeedbackService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/courses/:id")
	handler.NewFeedbackHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard)).Register(group)
	return app
}

func TestFeedbackHandlerRunSuccess(t *testing.T) {
	svc := &mockFeedbackService{report: service.FeedbackRunReport{Attempted: 3, Updated: 2, Skipped: []int64{200}}}
	app := newFeedbackApp(svc)

	resp := postJSON(t, app, "/api/v1/courses/395298/feedback-runs", dto.FeedbackRunRequest{UserID: 42, Limit: 5})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report service.FeedbackRunReport
	envelope := decodeEnvelope(t, resp, &report)

	require.True(t, envelope.Success)
	require.Equal(t, 3, report.Attempted)
	require.Equal(t, 2, report.Updated)
	require.Equal(t, []int64{200}, report.Skipped)
	require.Equal(t, int64(395298), svc.lastCourse)
	require.Equal(t, int64(42), svc.lastUser)
	require.Equal(t, 5, svc.lastLimit)
}

func TestFeedbackHandlerRejectsMissingUserID(t *testing.T) {
	svc := &mockFeedbackService{}
	app := newFeedbackApp(svc)

	resp := postJSON(t, app, "/api/v1/courses/1/feedback-runs", dto.FeedbackRunRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.lastUser)
}

func TestFeedbackHandlerRejectsInvalidCourseID(t *testing.T) {
	app := newFeedbackApp(&mockFeedbackService{})

	resp := postJSON(t, app, "/api/v1/courses/-7/feedback-runs", dto.FeedbackRunRequest{UserID: 42})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFeedbackHandlerRunFailure(t *testing.T) {
	svc := &mockFeedbackService{err: errors.New("workbook unreadable")}
	app := newFeedbackApp(svc)

	resp := postJSON(t, app, "/api/v1/courses/1/feedback-runs", dto.FeedbackRunRequest{UserID: 42})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	envelope := decodeEnvelope(t, resp, nil)
	require.False(t, envelope.Success)
	require.Equal(t, "feedback run failed", envelope.Message)
}
