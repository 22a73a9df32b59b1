package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edulens/quizfeedback-api/internal/dto"
	"github.com/edulens/quizfeedback-api/internal/service"
	"github.com/edulens/quizfeedback-api/internal/utils"
	"github.com/edulens/quizfeedback-api/pkg/ai"
	"github.com/edulens/quizfeedback-api/pkg/retrieval"
)

// QueryHandler answers course questions over HTTP.
type QueryHandler struct {
	service   service.QueryService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQueryHandler builds a query handler instance.
func NewQueryHandler(service service.QueryService, validator *validator.Validate, logger zerolog.Logger) *QueryHandler {
	return &QueryHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "query_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *QueryHandler) Register(router fiber.Router) {
	router.Post("/ask", h.ask)
}

func (h *QueryHandler) ask(c *fiber.Ctx) error {
	courseID, err := parseCourseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AskRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	answer, err := h.service.Ask(c.UserContext(), courseID, payload.Question, payload.TopK)
	if err != nil {
		h.logger.Error().Err(err).Int64("course_id", courseID).Msg("question failed")
		if errors.Is(err, retrieval.ErrRetrievalFailed) {
			return utils.SendError(c, fiber.StatusBadGateway, "course material retrieval failed")
		}
		if errors.Is(err, ai.ErrGenerationFailed) {
			return utils.SendError(c, fiber.StatusBadGateway, "answer generation failed")
		}
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to answer question")
	}

	if !answer.Found {
		return utils.SendSuccess(c, "no relevant course material found", answer)
	}

	return utils.SendSuccess(c, "question answered", answer)
}

func parseCourseID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	courseID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || courseID <= 0 {
		return 0, errors.New("invalid course id")
	}
	return courseID, nil
}
