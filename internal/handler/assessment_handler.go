package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

const genericSubmitError = "failed to submit assessment, please try again"

// AssessmentHandler exposes assessment delivery, submission and review endpoints.
type AssessmentHandler struct {
	service     service.AssessmentService
	logger      zerolog.Logger
	submitGuard fiber.Handler
}

// NewAssessmentHandler builds an assessment handler. submitGuard, when set,
// runs before the submit endpoint only.
func NewAssessmentHandler(service service.AssessmentService, submitGuard fiber.Handler, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service:     service,
		submitGuard: submitGuard,
		logger:      logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AssessmentHandler) Register(router fiber.Router) {
	router.Get("/:contentId", h.preview)
	if h.submitGuard != nil {
		router.Post("/:contentId/submissions", h.submitGuard, h.submit)
	} else {
		router.Post("/:contentId/submissions", h.submit)
	}
	router.Get("/:contentId/submissions", h.history)
	router.Get("/:contentId/submission", h.latest)
}

func (h *AssessmentHandler) preview(c *fiber.Ctx) error {
	contentID, err := contentIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	preview, err := h.service.Preview(c.UserContext(), contentID, isReviewer(c))
	if err != nil {
		return h.handleError(c, err, "failed to load assessment")
	}

	return utils.SendSuccess(c, "assessment retrieved", preview)
}

func (h *AssessmentHandler) submit(c *fiber.Ctx) error {
	contentID, err := contentIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.SubmitAssessmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Submit(c.UserContext(), userID, contentID, payload)
	if err != nil {
		return h.handleError(c, err, genericSubmitError)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment submitted", dto.NewSubmissionResultResponse(result))
}

func (h *AssessmentHandler) latest(c *fiber.Ctx) error {
	contentID, err := contentIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	result, err := h.service.GetByContentID(c.UserContext(), userID, contentID)
	if err != nil {
		return h.handleError(c, err, "failed to load submission")
	}
	if result == nil {
		return utils.SendEmpty(c, "no submission yet")
	}

	return utils.SendSuccess(c, "submission retrieved", dto.NewSubmissionResultResponse(*result))
}

func (h *AssessmentHandler) history(c *fiber.Ctx) error {
	contentID, err := contentIDParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	history, err := h.service.History(c.UserContext(), userID, contentID)
	if err != nil {
		return h.handleError(c, err, "failed to load submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", history)
}

// handleError maps service failures onto responses. Unexpected errors are
// logged and replaced by fallback so raw parser or store errors never leak.
func (h *AssessmentHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrContentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assessment content not found")
	case errors.Is(err, service.ErrNoQuestionsFound):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "assessment has no questions")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("path", c.Path()).Msg("assessment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func contentIDParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("contentId"))
	if id == "" {
		return "", errors.New("content id is required")
	}
	return id, nil
}
