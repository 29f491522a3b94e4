package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content is generated assessment or quiz text. Questions are never stored on
// their own; they are parsed from Body on demand.
type Content struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Type      string    `gorm:"size:32;not null;index" json:"type"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Duration  string    `gorm:"size:64" json:"duration"`
	CreatedBy string    `gorm:"size:64;index" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id and normalises the content type.
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	return nil
}
