package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// Mongo collection names used by the document store backend.
const (
	ContentCollection    = "contents"
	SubmissionCollection = "submissions"
)

type contentDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Type      string             `bson:"type"`
	Body      string             `bson:"body"`
	Duration  string             `bson:"duration,omitempty"`
	CreatedBy string             `bson:"createdBy,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d contentDocument) model() models.Content {
	return models.Content{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Type:      d.Type,
		Body:      d.Body,
		Duration:  d.Duration,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// submissionDocument keeps the camelCase field names of the historical
// submissions collection.
type submissionDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	ContentID   string             `bson:"contentId"`
	ContentType string             `bson:"contentType"`
	Responses   string             `bson:"responses"`
	Score       float64            `bson:"score"`
	TimeSpent   int                `bson:"timeSpent"`
	SubmittedAt time.Time          `bson:"submittedAt"`
}

func (d submissionDocument) model() models.Submission {
	return models.Submission{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		ContentID:   d.ContentID,
		ContentType: d.ContentType,
		Responses:   d.Responses,
		Score:       d.Score,
		TimeSpent:   d.TimeSpent,
		SubmittedAt: d.SubmittedAt,
	}
}

type mongoContentRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoContentRepository returns a content repository backed by MongoDB.
func NewMongoContentRepository(db *mongo.Database) ContentRepository {
	return &mongoContentRepository{collection: db.Collection(ContentCollection), now: time.Now}
}

func (r *mongoContentRepository) Create(ctx context.Context, content *models.Content) error {
	now := r.now().UTC()
	doc := contentDocument{
		ID:        primitive.NewObjectID(),
		Title:     content.Title,
		Type:      strings.ToLower(strings.TrimSpace(content.Type)),
		Body:      content.Body,
		Duration:  content.Duration,
		CreatedBy: content.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	*content = doc.model()
	return nil
}

func (r *mongoContentRepository) GetByID(ctx context.Context, id string) (models.Content, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Content{}, ErrNotFound
	}

	var doc contentDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Content{}, ErrNotFound
		}
		return models.Content{}, err
	}
	return doc.model(), nil
}

type mongoSubmissionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoSubmissionRepository returns a submission repository backed by MongoDB.
func NewMongoSubmissionRepository(db *mongo.Database) SubmissionRepository {
	return &mongoSubmissionRepository{collection: db.Collection(SubmissionCollection), now: time.Now}
}

func (r *mongoSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	doc := submissionDocument{
		ID:          primitive.NewObjectID(),
		UserID:      submission.UserID,
		ContentID:   submission.ContentID,
		ContentType: submission.ContentType,
		Responses:   submission.Responses,
		Score:       submission.Score,
		TimeSpent:   submission.TimeSpent,
		SubmittedAt: submission.SubmittedAt,
	}
	if doc.SubmittedAt.IsZero() {
		doc.SubmittedAt = r.now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	*submission = doc.model()
	return nil
}

func (r *mongoSubmissionRepository) FindMostRecent(ctx context.Context, userID, contentID string) (models.Submission, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "submittedAt", Value: -1}})

	var doc submissionDocument
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID, "contentId": contentID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Submission{}, ErrNotFound
		}
		return models.Submission{}, err
	}
	return doc.model(), nil
}

func (r *mongoSubmissionRepository) ListByUserAndContent(ctx context.Context, userID, contentID string) ([]models.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID, "contentId": contentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []submissionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(docs))
	for _, doc := range docs {
		submissions = append(submissions, doc.model())
	}
	return submissions, nil
}

// EnsureMongoIndexes creates the lookup index used by the submission queries.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(SubmissionCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "contentId", Value: 1}, {Key: "submittedAt", Value: -1}},
	})
	return err
}
