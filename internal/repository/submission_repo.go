package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// SubmissionRepository defines data operations for assessment submissions.
// Multiple attempts per user and content are kept; the newest wins on reads.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindMostRecent(ctx context.Context, userID, contentID string) (models.Submission, error)
	ListByUserAndContent(ctx context.Context, userID, contentID string) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the gorm repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context, userID, contentID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("user_id = ?", userID).
		Where("content_id = ?", contentID).
		Order("submitted_at DESC")
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) FindMostRecent(ctx context.Context, userID, contentID string) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx, userID, contentID).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByUserAndContent(ctx context.Context, userID, contentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx, userID, contentID).Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}
