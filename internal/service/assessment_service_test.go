package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

const sampleAssessment = `## Assessment Overview
A short check on arithmetic and geography for the first week.

## Questions

Question 1: [Multiple Choice]
What is 2+2?
A. 3
B. 4
C. 5
Correct Answer: B
Rationale: Two plus two is four.

Question 2: [True/False]
The sky is blue. True / False
Correct Answer: True

Question 3: [Short Answer]
What is the capital of France?
Correct Answer: Paris
`

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubContentRepo struct {
	items map[string]models.Content
	err   error
}

func (s *stubContentRepo) Create(ctx context.Context, content *models.Content) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = map[string]models.Content{}
	}
	if content.ID == "" {
		content.ID = "content-generated"
	}
	s.items[content.ID] = *content
	return nil
}

func (s *stubContentRepo) GetByID(ctx context.Context, id string) (models.Content, error) {
	if s.err != nil {
		return models.Content{}, s.err
	}
	content, ok := s.items[id]
	if !ok {
		return models.Content{}, repository.ErrNotFound
	}
	return content, nil
}

type stubSubmissionRepo struct {
	mu        sync.Mutex
	stored    []models.Submission
	createErr error
	// afterRead, when set, runs once FindMostRecent has picked its row.
	afterRead func()
}

func (s *stubSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if submission.ID == "" {
		submission.ID = "submission-" + string(rune('a'+len(s.stored)))
	}
	s.stored = append(s.stored, *submission)
	return nil
}

func (s *stubSubmissionRepo) FindMostRecent(ctx context.Context, userID, contentID string) (models.Submission, error) {
	items, _ := s.ListByUserAndContent(ctx, userID, contentID)
	if len(items) == 0 {
		return models.Submission{}, repository.ErrNotFound
	}
	if s.afterRead != nil {
		s.afterRead()
	}
	return items[0], nil
}

func (s *stubSubmissionRepo) ListByUserAndContent(ctx context.Context, userID, contentID string) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Submission
	for i := len(s.stored) - 1; i >= 0; i-- {
		item := s.stored[i]
		if item.UserID == userID && item.ContentID == contentID {
			out = append(out, item)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	events []SubmissionGradedEvent
	err    error
}

func (r *recordingPublisher) PublishGraded(ctx context.Context, event SubmissionGradedEvent) error {
	r.events = append(r.events, event)
	return r.err
}

type countingJudge struct {
	mu      sync.Mutex
	calls   int
	verdict ai.Verdict
	err     error
}

func (c *countingJudge) Judge(ctx context.Context, input ai.EquivalenceInput) (ai.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.verdict, c.err
}

func (c *countingJudge) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type serviceFixture struct {
	contents    *stubContentRepo
	submissions *stubSubmissionRepo
	events      *recordingPublisher
	judge       *countingJudge
	cache       *redis.Client
	redis       *miniredis.Miniredis
	service     AssessmentService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fx := &serviceFixture{
		contents: &stubContentRepo{items: map[string]models.Content{
			"content-1": {ID: "content-1", Title: "Week 1", Type: assessment.ContentTypeAssessment, Body: sampleAssessment, Duration: "10 minutes"},
			"quiz-1":    {ID: "quiz-1", Title: "Quiz", Type: assessment.ContentTypeQuiz, Body: sampleAssessment},
			"empty":     {ID: "empty", Title: "Empty", Type: assessment.ContentTypeQuiz, Body: "nothing to see"},
		}},
		submissions: &stubSubmissionRepo{},
		events:      &recordingPublisher{},
		judge:       &countingJudge{verdict: ai.Verdict{IsCorrect: true, Explanation: "Equivalent."}},
		cache:       client,
		redis:       server,
	}
	grader := assessment.NewGrader(fx.judge, assessment.WithLogger(testLogger()))
	svc := NewAssessmentService(fx.contents, fx.submissions, grader, client, time.Minute, fx.events, validator.New(), testLogger())
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.(*assessmentService).now = func() time.Time { return fixed }
	fx.service = svc
	return fx
}

func TestSubmitGradesPersistsAndPublishes(t *testing.T) {
	fx := newServiceFixture(t)

	result, err := fx.service.Submit(context.Background(), "user-1", "content-1", dto.SubmitAssessmentRequest{
		Responses: map[string]string{"question-1": "B", "question-2": "true", "question-3": "paris"},
		TimeSpent: 120,
	})
	require.NoError(t, err)

	require.Equal(t, 3, result.TotalQuestions)
	require.Equal(t, 3, result.CorrectCount)
	require.Zero(t, result.WrongCount)
	require.Equal(t, 100.0, result.Score)
	require.Equal(t, 1, fx.judge.Calls(), "only the short answer needs the judge")

	require.Len(t, fx.submissions.stored, 1)
	stored := fx.submissions.stored[0]
	require.Equal(t, assessment.ContentTypeAssessment, stored.ContentType)
	require.Equal(t, 120, stored.TimeSpent)

	decoded, err := assessment.DecodeResponses(stored.Responses)
	require.NoError(t, err)
	graded, ok := decoded.(assessment.GradedResponses)
	require.True(t, ok)
	require.Len(t, graded.QuestionResults, 3)
	require.Equal(t, "Two plus two is four.", graded.QuestionResults[0].Explanation)

	require.Len(t, fx.events.events, 1)
	require.Equal(t, stored.ID, fx.events.events[0].SubmissionID)
	require.Equal(t, 3, fx.events.events[0].CorrectCount)
}

func TestSubmitAppliesTimeBonusOnlyToAssessments(t *testing.T) {
	fx := newServiceFixture(t)
	fx.judge.verdict = ai.Verdict{IsCorrect: false}

	answers := map[string]string{"question-1": "B", "question-2": "False", "question-3": "Lyon"}

	timed, err := fx.service.Submit(context.Background(), "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: answers, TimeSpent: 300})
	require.NoError(t, err)
	require.InDelta(t, 100.0/3+5, timed.Score, 1e-9)

	quiz, err := fx.service.Submit(context.Background(), "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: answers, TimeSpent: 300, ContentType: "quiz"})
	require.NoError(t, err)
	require.InDelta(t, 100.0/3, quiz.Score, 1e-9)
}

func TestSubmitJudgeFailureStillScores(t *testing.T) {
	fx := newServiceFixture(t)
	fx.judge.err = errors.New("judge offline")

	result, err := fx.service.Submit(context.Background(), "user-1", "quiz-1", dto.SubmitAssessmentRequest{
		Responses: map[string]string{"question-1": "C", "question-2": "True", "question-3": " PARIS "},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.CorrectCount)
	require.False(t, result.QuestionResults[0].IsCorrect)
	require.True(t, result.QuestionResults[2].IsCorrect)
}

func TestSubmitErrors(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	_, err := fx.service.Submit(ctx, "user-1", "missing", dto.SubmitAssessmentRequest{Responses: map[string]string{}})
	require.ErrorIs(t, err, ErrContentNotFound)

	_, err = fx.service.Submit(ctx, "user-1", "empty", dto.SubmitAssessmentRequest{Responses: map[string]string{}})
	require.ErrorIs(t, err, ErrNoQuestionsFound)

	_, err = fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{}, TimeSpent: -1})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	_, err = fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{})
	require.ErrorAs(t, err, &validationErrors)

	fx.submissions.createErr = errors.New("db down")
	_, err = fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{}})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrContentNotFound)
	require.Empty(t, fx.events.events)
}

func TestSubmitPublishFailureIsNotFatal(t *testing.T) {
	fx := newServiceFixture(t)
	fx.events.err = errors.New("nats down")

	_, err := fx.service.Submit(context.Background(), "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{}})
	require.NoError(t, err)
	require.Len(t, fx.submissions.stored, 1)
}

func TestGetByContentIDReturnsNilWithoutSubmission(t *testing.T) {
	fx := newServiceFixture(t)

	result, err := fx.service.GetByContentID(context.Background(), "user-1", "content-1")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestGetByContentIDUsesPersistedResultsWithoutRegrading(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	submitted, err := fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{
		Responses: map[string]string{"question-3": "the city of Paris"},
	})
	require.NoError(t, err)
	callsAfterSubmit := fx.judge.Calls()

	// Judge now disagrees; the review must still show the persisted verdict.
	fx.judge.verdict = ai.Verdict{IsCorrect: false}
	review, err := fx.service.GetByContentID(ctx, "user-1", "content-1")
	require.NoError(t, err)
	require.NotNil(t, review)
	require.Equal(t, submitted, *review)
	require.True(t, review.QuestionResults[2].IsCorrect)
	require.Equal(t, callsAfterSubmit, fx.judge.Calls())
	require.True(t, fx.redis.Exists(reviewCacheKey("user-1", "content-1")))
}

func TestGetByContentIDReconstructsLegacyShape(t *testing.T) {
	fx := newServiceFixture(t)
	fx.submissions.stored = append(fx.submissions.stored, models.Submission{
		ID:          "legacy-1",
		UserID:      "user-1",
		ContentID:   "content-1",
		ContentType: assessment.ContentTypeAssessment,
		Responses:   `{"question-1":"b","question-2":"False","question-3":"the city of Paris"}`,
		Score:       42,
		SubmittedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	review, err := fx.service.GetByContentID(context.Background(), "user-1", "content-1")
	require.NoError(t, err)
	require.NotNil(t, review)
	require.Equal(t, 42.0, review.Score)
	require.Equal(t, 3, review.TotalQuestions)
	require.Equal(t, 1, review.CorrectCount)
	require.True(t, review.QuestionResults[0].IsCorrect)
	require.False(t, review.QuestionResults[2].IsCorrect, "legacy answers are compared, never judged")
	require.Zero(t, fx.judge.Calls())
}

func TestGetByContentIDLegacyWithoutContent(t *testing.T) {
	fx := newServiceFixture(t)
	fx.submissions.stored = append(fx.submissions.stored, models.Submission{
		ID: "legacy-2", UserID: "user-1", ContentID: "gone", Responses: `{"question-1":"A"}`,
	})

	_, err := fx.service.GetByContentID(context.Background(), "user-1", "gone")
	require.ErrorIs(t, err, ErrContentNotFound)
}

func TestSubmitRefreshesCachedReview(t *testing.T) {
	fx := newServiceFixture(t)
	fx.judge.verdict = ai.Verdict{IsCorrect: false}
	ctx := context.Background()

	_, err := fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{"question-1": "A"}})
	require.NoError(t, err)
	first, err := fx.service.GetByContentID(ctx, "user-1", "content-1")
	require.NoError(t, err)
	require.False(t, first.QuestionResults[0].IsCorrect)

	_, err = fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{"question-1": "B"}})
	require.NoError(t, err)
	cached, err := fx.redis.Get(reviewCacheKey("user-1", "content-1"))
	require.NoError(t, err)
	require.Contains(t, cached, `"studentAnswer":"B"`)

	second, err := fx.service.GetByContentID(ctx, "user-1", "content-1")
	require.NoError(t, err)
	require.True(t, second.QuestionResults[0].IsCorrect)
}

func TestReviewReadRacingSubmitKeepsNewestAttempt(t *testing.T) {
	fx := newServiceFixture(t)
	fx.judge.verdict = ai.Verdict{IsCorrect: false}
	ctx := context.Background()
	key := reviewCacheKey("user-1", "content-1")

	_, err := fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{"question-1": "A"}})
	require.NoError(t, err)
	fx.redis.Del(key)

	read := make(chan struct{})
	release := make(chan struct{})
	fx.submissions.afterRead = func() {
		close(read)
		<-release
	}

	stale := make(chan *assessment.SubmissionResult, 1)
	go func() {
		result, err := fx.service.GetByContentID(ctx, "user-1", "content-1")
		if err != nil {
			stale <- nil
			return
		}
		stale <- result
	}()

	<-read
	_, err = fx.service.Submit(ctx, "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{"question-1": "B"}})
	require.NoError(t, err)
	close(release)

	old := <-stale
	require.NotNil(t, old)
	require.Equal(t, "A", old.QuestionResults[0].StudentAnswer)
	fx.submissions.afterRead = nil

	latest, err := fx.service.GetByContentID(ctx, "user-1", "content-1")
	require.NoError(t, err)
	require.Equal(t, "B", latest.QuestionResults[0].StudentAnswer)
	require.True(t, latest.QuestionResults[0].IsCorrect)
}

func TestContentIDsAreCaseInsensitive(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	_, err := fx.service.Submit(ctx, "user-1", "Content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{"question-1": "B"}})
	require.NoError(t, err)
	require.Equal(t, "content-1", fx.submissions.stored[0].ContentID)

	review, err := fx.service.GetByContentID(ctx, "user-1", "CONTENT-1")
	require.NoError(t, err)
	require.NotNil(t, review)
	require.Equal(t, "B", review.QuestionResults[0].StudentAnswer)

	fx.redis.FlushAll()
	review, err = fx.service.GetByContentID(ctx, "user-1", " CONTENT-1 ")
	require.NoError(t, err)
	require.NotNil(t, review)

	history, err := fx.service.History(ctx, "user-1", "CONTENT-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	preview, err := fx.service.Preview(ctx, "CONTENT-1", false)
	require.NoError(t, err)
	require.Equal(t, "content-1", preview.ContentID)
}

func TestHistoryListsAttemptsNewestFirst(t *testing.T) {
	fx := newServiceFixture(t)
	fx.submissions.stored = append(fx.submissions.stored, models.Submission{
		ID: "legacy-1", UserID: "user-1", ContentID: "content-1", Responses: `{"question-1":"A"}`, Score: 10,
	})
	_, err := fx.service.Submit(context.Background(), "user-1", "content-1", dto.SubmitAssessmentRequest{Responses: map[string]string{}})
	require.NoError(t, err)

	history, err := fx.service.History(context.Background(), "user-1", "content-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].Graded)
	require.Equal(t, "legacy-1", history[1].ID)
	require.False(t, history[1].Graded)
}

func TestPreviewWithholdsAnswersFromLearners(t *testing.T) {
	fx := newServiceFixture(t)

	preview, err := fx.service.Preview(context.Background(), "content-1", false)
	require.NoError(t, err)
	require.Equal(t, 600, preview.DurationSeconds)
	require.Equal(t, 3, preview.TotalQuestions)
	require.Equal(t, "A short check on arithmetic and geography for the first week.", preview.Overview)
	for _, q := range preview.Questions {
		require.Empty(t, q.CorrectAnswer)
		require.Empty(t, q.Explanation)
	}

	reviewer, err := fx.service.Preview(context.Background(), "content-1", true)
	require.NoError(t, err)
	require.Equal(t, "B", reviewer.Questions[0].CorrectAnswer)
	require.Equal(t, []string{"A. 3", "B. 4", "C. 5"}, reviewer.Questions[0].Options)

	_, err = fx.service.Preview(context.Background(), "missing", false)
	require.ErrorIs(t, err, ErrContentNotFound)
}
