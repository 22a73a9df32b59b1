package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edulens/quizfeedback-api/internal/dto"
	"github.com/edulens/quizfeedback-api/internal/service"
	"github.com/edulens/quizfeedback-api/internal/utils"
)

// FeedbackHandler triggers feedback generation runs over HTTP.
type FeedbackHandler struct {
	service   service.FeedbackService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewFeedbackHandler builds a feedback handler instance.
func NewFeedbackHandler(service service.FeedbackService, validator *validator.Validate, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Post("/feedback-runs", h.run)
}

func (h *FeedbackHandler) run(c *fiber.Ctx) error {
	courseID, err := parseCourseID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FeedbackRunRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.GenerateFeedback(c.UserContext(), courseID, payload.UserID, payload.Limit)
	if err != nil {
		h.logger.Error().Err(err).
			Int64("course_id", courseID).
			Int64("user_id", payload.UserID).
			Msg("feedback run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "feedback run failed")
	}

	return utils.SendSuccess(c, "feedback run complete", report)
}
