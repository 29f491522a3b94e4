package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// ContentCreateRequest seeds generated assessment or quiz text.
type ContentCreateRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	Type     string `json:"type" validate:"required,oneof=assessment quiz"`
	Body     string `json:"body" validate:"required"`
	Duration string `json:"duration" validate:"omitempty,max=64"`
}

// ContentResponse is returned when creating or fetching content.
type ContentResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Type            string    `json:"type"`
	Duration        string    `json:"duration,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	QuestionCount   int       `json:"question_count"`
	Body            string    `json:"body"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewContentResponse maps a content model to its API representation.
func NewContentResponse(model models.Content, durationSeconds, questionCount int) ContentResponse {
	return ContentResponse{
		ID:              model.ID,
		Title:           model.Title,
		Type:            model.Type,
		Duration:        model.Duration,
		DurationSeconds: durationSeconds,
		QuestionCount:   questionCount,
		Body:            model.Body,
		CreatedBy:       model.CreatedBy,
		CreatedAt:       model.CreatedAt,
	}
}
