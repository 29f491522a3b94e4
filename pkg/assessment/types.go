package assessment

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	// TypeMCQ is a multiple choice question answered with an option letter.
	TypeMCQ QuestionType = "mcq"
	// TypeTrueFalse is a closed True/False question.
	TypeTrueFalse QuestionType = "true_false"
	// TypeShortAnswer is an open question answered with free text.
	TypeShortAnswer QuestionType = "short_answer"
)

// IsClosed reports whether answers can be compared structurally.
func (t QuestionType) IsClosed() bool {
	return t == TypeMCQ || t == TypeTrueFalse
}

// Content types recognised by the scoring policy.
const (
	ContentTypeAssessment = "assessment"
	ContentTypeQuiz       = "quiz"
)

// Question is a single parsed assessment item.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
}

// ParsedAssessment is the result of parsing raw assessment text.
type ParsedAssessment struct {
	Questions          []Question `json:"questions"`
	Overview           string     `json:"overview,omitempty"`
	LearningObjectives []string   `json:"learningObjectives,omitempty"`
}

// QuestionResult records how one question was graded. The JSON field names
// are part of the persisted submission format and must not change.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation,omitempty"`
}

// SubmissionResult is the graded view of a submission.
type SubmissionResult struct {
	Score           float64          `json:"score"`
	TotalQuestions  int              `json:"totalQuestions"`
	CorrectCount    int              `json:"correctCount"`
	WrongCount      int              `json:"wrongCount"`
	QuestionResults []QuestionResult `json:"questionResults"`
}

// NewSubmissionResult tallies results and attaches the given score.
func NewSubmissionResult(score float64, results []QuestionResult) SubmissionResult {
	correct := CountCorrect(results)
	if results == nil {
		results = []QuestionResult{}
	}
	return SubmissionResult{
		Score:           score,
		TotalQuestions:  len(results),
		CorrectCount:    correct,
		WrongCount:      len(results) - correct,
		QuestionResults: results,
	}
}

// CountCorrect returns the number of results marked correct.
func CountCorrect(results []QuestionResult) int {
	count := 0
	for _, r := range results {
		if r.IsCorrect {
			count++
		}
	}
	return count
}
