package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

// ContentService manages the generated content assessments are parsed from.
type ContentService interface {
	Create(ctx context.Context, authorID string, payload dto.ContentCreateRequest) (dto.ContentResponse, error)
	Get(ctx context.Context, id string) (dto.ContentResponse, error)
}

type contentService struct {
	repo      repository.ContentRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewContentService constructs the content service.
func NewContentService(repo repository.ContentRepository, validate *validator.Validate, logger zerolog.Logger) ContentService {
	if validate == nil {
		validate = validator.New()
	}
	return &contentService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "content_service").Logger(),
	}
}

func (s *contentService) Create(ctx context.Context, authorID string, payload dto.ContentCreateRequest) (dto.ContentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ContentResponse{}, err
	}

	parsed := assessment.Parse(payload.Body)
	if len(parsed.Questions) == 0 {
		return dto.ContentResponse{}, ErrNoQuestionsFound
	}

	content := models.Content{
		Title:     strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Type:      payload.Type,
		Body:      payload.Body,
		Duration:  strings.TrimSpace(payload.Duration),
		CreatedBy: authorID,
	}
	if err := s.repo.Create(ctx, &content); err != nil {
		return dto.ContentResponse{}, err
	}

	s.logger.Info().Str("content_id", content.ID).Int("questions", len(parsed.Questions)).Msg("content created")
	return dto.NewContentResponse(content, assessment.ParseDurationSeconds(content.Duration), len(parsed.Questions)), nil
}

func (s *contentService) Get(ctx context.Context, id string) (dto.ContentResponse, error) {
	content, err := loadContent(ctx, s.repo, id)
	if err != nil {
		return dto.ContentResponse{}, err
	}
	parsed := assessment.Parse(content.Body)
	return dto.NewContentResponse(content, assessment.ParseDurationSeconds(content.Duration), len(parsed.Questions)), nil
}
