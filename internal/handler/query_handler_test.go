package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edulens/quizfeedback-api/internal/dto"
	"github.com/edulens/quizfeedback-api/internal/handler"
	"github.com/edulens/quizfeedback-api/internal/service"
	"github.com/edulens/quizfeedback-api/internal/utils"
	"github.com/edulens/quizfeedback-api/pkg/retrieval"
)

type mockQueryService struct {
	lastCourse   int64
	lastQuestion string
	answer       service.Answer
	err          error
}

func (m *mockQueryService) Ask(_ context.Context, courseID int64, question string, topK int) (service.Answer, error) {
	m.lastCourse = courseID
	m.lastQuestion = question
	if m.err != nil {
		return service.Answer{}, m.err
	}
	return m.answer, nil
}

func newQueryApp(svc service.QueryService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/courses/:id")
	handler.NewQueryHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard)).Register(group)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data any) utils.APIResponse {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope utils.APIResponse
	require.NoError(t, json.Unmarshal(raw, &envelope))

	if data != nil && envelope.Data != nil {
		payload, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(payload, data))
	}
	return envelope
}

func TestQueryHandlerAskSuccess(t *testing.T) {
	svc := &mockQueryService{answer: service.Answer{
		Found:    true,
		Answer:   "Photosynthesis converts light into chemical energy.",
		Evidence: []retrieval.Match{{ID: "doc-3", Score: 0.81, Text: "passage"}},
	}}
	app := newQueryApp(svc)

	resp := postJSON(t, app, "/api/v1/courses/395298/ask", dto.AskRequest{Question: "What is photosynthesis?"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var answer service.Answer
	envelope := decodeEnvelope(t, resp, &answer)

	require.True(t, envelope.Success)
	require.True(t, answer.Found)
	require.Equal(t, "Photosynthesis converts light into chemical energy.", answer.Answer)
	require.Len(t, answer.Evidence, 1)
	require.Equal(t, int64(395298), svc.lastCourse)
	require.Equal(t, "What is photosynthesis?", svc.lastQuestion)
}

func TestQueryHandlerAskNoMaterial(t *testing.T) {
	svc := &mockQueryService{answer: service.Answer{Found: false}}
	app := newQueryApp(svc)

	resp := postJSON(t, app, "/api/v1/courses/1/ask", dto.AskRequest{Question: "Anything here?"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var answer service.Answer
	envelope := decodeEnvelope(t, resp, &answer)
	require.True(t, envelope.Success)
	require.False(t, answer.Found)
	require.Equal(t, "no relevant course material found", envelope.Message)
}

func TestQueryHandlerRejectsInvalidCourseID(t *testing.T) {
	app := newQueryApp(&mockQueryService{})

	resp := postJSON(t, app, "/api/v1/courses/abc/ask", dto.AskRequest{Question: "Valid question?"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQueryHandlerRejectsMissingQuestion(t *testing.T) {
	app := newQueryApp(&mockQueryService{})

	resp := postJSON(t, app, "/api/v1/courses/1/ask", dto.AskRequest{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQueryHandlerRetrievalFailureIsBadGateway(t *testing.T) {
	svc := &mockQueryService{err: retrieval.ErrRetrievalFailed}
	app := newQueryApp(svc)

	resp := postJSON(t, app, "/api/v1/courses/1/ask", dto.AskRequest{Question: "Valid question?"})
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	envelope := decodeEnvelope(t, resp, nil)
	require.False(t, envelope.Success)
}
