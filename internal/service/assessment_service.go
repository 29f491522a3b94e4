package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

var (
	// ErrContentNotFound indicates the source content of an assessment no longer exists.
	ErrContentNotFound = errors.New("content not found")
	// ErrNoQuestionsFound indicates the content parsed to zero questions.
	ErrNoQuestionsFound = errors.New("no questions found in content")
)

// AssessmentService grades submissions and serves them back for review.
type AssessmentService interface {
	Submit(ctx context.Context, userID, contentID string, payload dto.SubmitAssessmentRequest) (assessment.SubmissionResult, error)
	GetByContentID(ctx context.Context, userID, contentID string) (*assessment.SubmissionResult, error)
	History(ctx context.Context, userID, contentID string) ([]dto.SubmissionSummary, error)
	Preview(ctx context.Context, contentID string, revealAnswers bool) (dto.AssessmentPreview, error)
}

type assessmentService struct {
	contents    repository.ContentRepository
	submissions repository.SubmissionRepository
	grader      *assessment.Grader
	cache       *redis.Client
	cacheTTL    time.Duration
	events      SubmissionEventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAssessmentService wires the grading pipeline to its stores. cache and
// events may be nil.
func NewAssessmentService(
	contents repository.ContentRepository,
	submissions repository.SubmissionRepository,
	grader *assessment.Grader,
	cache *redis.Client,
	cacheTTL time.Duration,
	events SubmissionEventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AssessmentService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if grader == nil {
		grader = assessment.NewGrader(nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	return &assessmentService{
		contents:    contents,
		submissions: submissions,
		grader:      grader,
		cache:       cache,
		cacheTTL:    cacheTTL,
		events:      events,
		validator:   validate,
		logger:      logger.With().Str("component", "assessment_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/assessment"),
		now:         time.Now,
	}
}

func (s *assessmentService) Submit(ctx context.Context, userID, contentID string, payload dto.SubmitAssessmentRequest) (assessment.SubmissionResult, error) {
	contentID = canonicalContentID(contentID)
	if err := s.validator.Struct(payload); err != nil {
		return assessment.SubmissionResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "assessments.submit", trace.WithAttributes(
		attribute.String("assessment.content_id", contentID),
		attribute.String("assessment.user_id", userID),
	))
	defer span.End()

	content, err := loadContent(ctx, s.contents, contentID)
	if err != nil {
		return assessment.SubmissionResult{}, s.fail(span, payload.ContentType, err)
	}

	parsed := assessment.Parse(content.Body)
	if len(parsed.Questions) == 0 {
		return assessment.SubmissionResult{}, s.fail(span, content.Type, ErrNoQuestionsFound)
	}

	contentType := strings.ToLower(strings.TrimSpace(payload.ContentType))
	if contentType == "" {
		contentType = content.Type
	}
	span.SetAttributes(attribute.String("assessment.content_type", contentType), attribute.Int("assessment.questions", len(parsed.Questions)))

	gradingStart := time.Now()
	results := s.grader.GradeAll(ctx, parsed.Questions, payload.Responses)
	observability.GradingLatency().WithLabelValues(contentType).Observe(time.Since(gradingStart).Seconds())

	breakdown := assessment.Score(assessment.ScoreInput{
		CorrectCount:   assessment.CountCorrect(results),
		TotalQuestions: len(results),
		ContentType:    contentType,
		TimeSpent:      payload.TimeSpent,
		TotalDuration:  assessment.ParseDurationSeconds(content.Duration),
	})

	encoded, err := assessment.EncodeResponses(payload.Responses, results)
	if err != nil {
		return assessment.SubmissionResult{}, s.fail(span, contentType, err)
	}

	submission := models.Submission{
		UserID:      userID,
		ContentID:   content.ID,
		ContentType: contentType,
		Responses:   encoded,
		Score:       breakdown.FinalScore,
		TimeSpent:   payload.TimeSpent,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return assessment.SubmissionResult{}, s.fail(span, contentType, fmt.Errorf("persist submission: %w", err))
	}

	result := assessment.NewSubmissionResult(breakdown.FinalScore, results)
	s.refreshReview(ctx, userID, content.ID, result)
	s.publish(ctx, submission, result)

	observability.Submissions().WithLabelValues(contentType, "graded").Inc()
	observability.SubmissionScores().WithLabelValues(contentType).Observe(result.Score)
	span.SetAttributes(attribute.Float64("assessment.score", result.Score))

	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("content_id", content.ID).
		Str("user_id", userID).
		Float64("base_score", breakdown.BaseScore).
		Float64("time_bonus", breakdown.TimeBonus).
		Float64("score", result.Score).
		Msg("submission graded")

	return result, nil
}

func (s *assessmentService) GetByContentID(ctx context.Context, userID, contentID string) (*assessment.SubmissionResult, error) {
	contentID = canonicalContentID(contentID)
	ctx, span := s.tracer.Start(ctx, "assessments.review", trace.WithAttributes(
		attribute.String("assessment.content_id", contentID),
		attribute.String("assessment.user_id", userID),
	))
	defer span.End()

	if cached, ok := s.cachedReview(ctx, userID, contentID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	submission, err := s.submissions.FindMostRecent(ctx, userID, contentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	stored, err := assessment.DecodeResponses(submission.Responses)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode submission %s: %w", submission.ID, err)
	}

	var questions []assessment.Question
	if _, graded := stored.(assessment.GradedResponses); !graded {
		content, err := loadContent(ctx, s.contents, contentID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		questions = assessment.Parse(content.Body).Questions
		span.SetAttributes(attribute.Bool("assessment.legacy", true))
	}

	result := assessment.ReconstructResult(stored, questions, submission.Score)
	s.storeReview(ctx, userID, contentID, result)
	return &result, nil
}

func (s *assessmentService) History(ctx context.Context, userID, contentID string) ([]dto.SubmissionSummary, error) {
	contentID = canonicalContentID(contentID)
	submissions, err := s.submissions.ListByUserAndContent(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.SubmissionSummary, 0, len(submissions))
	for _, submission := range submissions {
		stored, err := assessment.DecodeResponses(submission.Responses)
		_, graded := stored.(assessment.GradedResponses)
		if err != nil {
			s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("unreadable submission responses")
		}
		summaries = append(summaries, dto.NewSubmissionSummary(submission, graded))
	}
	return summaries, nil
}

func (s *assessmentService) Preview(ctx context.Context, contentID string, revealAnswers bool) (dto.AssessmentPreview, error) {
	contentID = canonicalContentID(contentID)
	content, err := loadContent(ctx, s.contents, contentID)
	if err != nil {
		return dto.AssessmentPreview{}, err
	}

	parsed := assessment.Parse(content.Body)
	if len(parsed.Questions) == 0 {
		return dto.AssessmentPreview{}, ErrNoQuestionsFound
	}

	questions := make([]dto.PreviewQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		item := dto.PreviewQuestion{
			ID:       q.ID,
			Type:     string(q.Type),
			Question: q.Question,
			Options:  q.Options,
		}
		if revealAnswers {
			item.CorrectAnswer = q.CorrectAnswer
			item.Explanation = q.Explanation
		}
		questions = append(questions, item)
	}

	return dto.AssessmentPreview{
		ContentID:          content.ID,
		Title:              content.Title,
		ContentType:        content.Type,
		Overview:           parsed.Overview,
		LearningObjectives: parsed.LearningObjectives,
		DurationSeconds:    assessment.ParseDurationSeconds(content.Duration),
		TotalQuestions:     len(questions),
		Questions:          questions,
	}, nil
}

func loadContent(ctx context.Context, repo repository.ContentRepository, contentID string) (models.Content, error) {
	content, err := repo.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Content{}, fmt.Errorf("%w: %s", ErrContentNotFound, contentID)
		}
		return models.Content{}, fmt.Errorf("load content %s: %w", contentID, err)
	}
	return content, nil
}

func (s *assessmentService) fail(span trace.Span, contentType string, err error) error {
	if contentType == "" {
		contentType = "unknown"
	}
	observability.Submissions().WithLabelValues(contentType, "failed").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *assessmentService) publish(ctx context.Context, submission models.Submission, result assessment.SubmissionResult) {
	if s.events == nil {
		return
	}
	event := SubmissionGradedEvent{
		SubmissionID:   submission.ID,
		UserID:         submission.UserID,
		ContentID:      submission.ContentID,
		ContentType:    submission.ContentType,
		Score:          result.Score,
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		TimeSpent:      submission.TimeSpent,
		CorrelationID:  middleware.CorrelationIDFromContext(ctx),
		SubmittedAt:    submission.SubmittedAt,
	}
	if err := s.events.PublishGraded(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("failed to publish submission event")
	}
}

// canonicalContentID lowercases ids so uuid and ObjectID hex spellings of the
// same content resolve to the rows and cache entries written on submit.
func canonicalContentID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func reviewCacheKey(userID, contentID string) string {
	return fmt.Sprintf("assessments:review:v1:%s:%s", userID, contentID)
}

func (s *assessmentService) cachedReview(ctx context.Context, userID, contentID string) (*assessment.SubmissionResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, err := s.cache.Get(ctx, reviewCacheKey(userID, contentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read review cache")
		}
		observability.ReviewCache().WithLabelValues("miss").Inc()
		return nil, false
	}

	var result assessment.SubmissionResult
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		observability.ReviewCache().WithLabelValues("miss").Inc()
		return nil, false
	}
	observability.ReviewCache().WithLabelValues("hit").Inc()
	return &result, true
}

// storeReview fills an empty cache slot only. A review read concurrently
// with a submit may hold an older row, and must not replace what the submit
// wrote.
func (s *assessmentService) storeReview(ctx context.Context, userID, contentID string, result assessment.SubmissionResult) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.SetNX(ctx, reviewCacheKey(userID, contentID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache submission review")
	}
}

// refreshReview overwrites the cached review with the attempt just persisted.
// On failure the entry is dropped so reads fall through to the store.
func (s *assessmentService) refreshReview(ctx context.Context, userID, contentID string, result assessment.SubmissionResult) {
	if s.cache == nil {
		return
	}
	key := reviewCacheKey(userID, contentID)
	payload, err := json.Marshal(result)
	if err == nil {
		err = s.cache.Set(ctx, key, payload, s.cacheTTL).Err()
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh review cache")
		if err := s.cache.Del(ctx, key).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate review cache")
		}
	}
}
