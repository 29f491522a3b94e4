package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

func TestContentRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t, &models.Content{})
	repo := NewContentRepository(db)

	content := models.Content{Title: "Fractions", Type: " Assessment ", Body: "Question 1: [Short Answer]\nHalf of 4?\nCorrect Answer: 2", Duration: "30 minutes"}
	require.NoError(t, repo.Create(context.Background(), &content))
	require.NotEmpty(t, content.ID)
	require.Equal(t, assessment.ContentTypeAssessment, content.Type)

	stored, err := repo.GetByID(context.Background(), content.ID)
	require.NoError(t, err)
	require.Equal(t, "Fractions", stored.Title)
	require.Equal(t, "30 minutes", stored.Duration)
	require.Equal(t, assessment.ContentTypeAssessment, stored.Type)
}

func TestContentRepositoryGetMissing(t *testing.T) {
	db := setupTestDB(t, &models.Content{})
	repo := NewContentRepository(db)

	_, err := repo.GetByID(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func setupTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}
