package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission is one learner attempt at an assessment or quiz. Responses holds
// the JSON-encoded answers, and for newer rows the graded question results.
type Submission struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:64;not null;index:idx_submissions_user_content" json:"user_id"`
	ContentID   string    `gorm:"size:36;not null;index:idx_submissions_user_content" json:"content_id"`
	ContentType string    `gorm:"size:32;not null" json:"content_type"`
	Responses   string    `gorm:"type:text;not null" json:"responses"`
	Score       float64   `gorm:"not null" json:"score"`
	TimeSpent   int       `gorm:"not null" json:"time_spent"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
}

// BeforeCreate assigns an id and submission timestamp when missing.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	return nil
}
