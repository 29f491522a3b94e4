package dto

import (
	"time"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/pkg/assessment"
)

// SubmitAssessmentRequest is the payload learners post when finishing an assessment or quiz.
type SubmitAssessmentRequest struct {
	ContentType string            `json:"content_type" validate:"omitempty,oneof=assessment quiz"`
	Responses   map[string]string `json:"responses" validate:"required"`
	TimeSpent   int               `json:"time_spent" validate:"gte=0"`
}

// QuestionResultResponse is the graded view of one answer.
type QuestionResultResponse struct {
	QuestionID    string `json:"question_id"`
	StudentAnswer string `json:"student_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// SubmissionResultResponse is returned after grading and when reviewing a submission.
type SubmissionResultResponse struct {
	Score           float64                  `json:"score"`
	TotalQuestions  int                      `json:"total_questions"`
	CorrectCount    int                      `json:"correct_count"`
	WrongCount      int                      `json:"wrong_count"`
	QuestionResults []QuestionResultResponse `json:"question_results"`
}

// NewSubmissionResultResponse maps a graded result into the API representation.
func NewSubmissionResultResponse(result assessment.SubmissionResult) SubmissionResultResponse {
	items := make([]QuestionResultResponse, 0, len(result.QuestionResults))
	for _, r := range result.QuestionResults {
		items = append(items, QuestionResultResponse{
			QuestionID:    r.QuestionID,
			StudentAnswer: r.StudentAnswer,
			CorrectAnswer: r.CorrectAnswer,
			IsCorrect:     r.IsCorrect,
			Explanation:   r.Explanation,
		})
	}

	return SubmissionResultResponse{
		Score:           result.Score,
		TotalQuestions:  result.TotalQuestions,
		CorrectCount:    result.CorrectCount,
		WrongCount:      result.WrongCount,
		QuestionResults: items,
	}
}

// SubmissionSummary describes one attempt in a learner's history.
type SubmissionSummary struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"content_id"`
	ContentType string    `json:"content_type"`
	Score       float64   `json:"score"`
	TimeSpent   int       `json:"time_spent"`
	Graded      bool      `json:"graded"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewSubmissionSummary builds a history entry. graded reports whether the
// attempt carries persisted question results.
func NewSubmissionSummary(model models.Submission, graded bool) SubmissionSummary {
	return SubmissionSummary{
		ID:          model.ID,
		ContentID:   model.ContentID,
		ContentType: model.ContentType,
		Score:       model.Score,
		TimeSpent:   model.TimeSpent,
		Graded:      graded,
		SubmittedAt: model.SubmittedAt,
	}
}

// PreviewQuestion is a question as delivered to a learner. Answers are only
// filled for reviewers.
type PreviewQuestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// AssessmentPreview is the deliverable form of a piece of content.
type AssessmentPreview struct {
	ContentID          string            `json:"content_id"`
	Title              string            `json:"title"`
	ContentType        string            `json:"content_type"`
	Overview           string            `json:"overview,omitempty"`
	LearningObjectives []string          `json:"learning_objectives,omitempty"`
	DurationSeconds    int               `json:"duration_seconds"`
	TotalQuestions     int               `json:"total_questions"`
	Questions          []PreviewQuestion `json:"questions"`
}
