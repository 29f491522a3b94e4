package assessment

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

// GraderOption customises a Grader.
type GraderOption func(*Grader)

// WithConcurrency bounds the number of judge calls in flight for one
// submission. Values below 1 mean sequential grading.
func WithConcurrency(n int) GraderOption {
	return func(g *Grader) {
		if n < 1 {
			n = 1
		}
		g.concurrency = n
	}
}

// WithLogger sets the logger used to report judge failures.
func WithLogger(logger zerolog.Logger) GraderOption {
	return func(g *Grader) {
		g.logger = logger.With().Str("component", "grader").Logger()
	}
}

// WithFallbackHook registers a callback invoked whenever a judge failure
// forces the deterministic result.
func WithFallbackHook(hook func(QuestionType)) GraderOption {
	return func(g *Grader) {
		g.onFallback = hook
	}
}

// Grader decides per-question correctness. The judge is optional; without it
// every question is graded by string comparison.
type Grader struct {
	judge       ai.Judge
	logger      zerolog.Logger
	concurrency int
	onFallback  func(QuestionType)
}

// NewGrader builds a grader around the given judge, which may be nil.
func NewGrader(judge ai.Judge, opts ...GraderOption) *Grader {
	g := &Grader{
		judge:       judge,
		logger:      zerolog.Nop(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GradeAll grades every question against responses keyed by question id and
// returns the results in question order. It never fails.
func (g *Grader) GradeAll(ctx context.Context, questions []Question, responses map[string]string) []QuestionResult {
	results := make([]QuestionResult, len(questions))

	var group errgroup.Group
	group.SetLimit(g.concurrency)
	for i, q := range questions {
		i, q := i, q
		group.Go(func() error {
			results[i] = g.GradeQuestion(ctx, q, responses[q.ID])
			return nil
		})
	}
	_ = group.Wait()

	return results
}

// GradeQuestion grades a single answer, consulting the judge where the
// question type allows it and falling back to comparison on judge failure.
func (g *Grader) GradeQuestion(ctx context.Context, q Question, answer string) QuestionResult {
	result := DeterministicResult(q, answer)
	if g.judge == nil {
		return result
	}

	switch {
	case q.Type.IsClosed():
		if result.IsCorrect || strings.TrimSpace(answer) == "" {
			return result
		}
		verdict, ok := g.ask(ctx, q, ai.EquivalenceInput{
			Question:      q.Question,
			CorrectAnswer: optionText(q, q.CorrectAnswer),
			StudentAnswer: optionText(q, answer),
			QuestionType:  string(q.Type),
		})
		if !ok {
			return result
		}
		// A negative verdict never overrides the comparison.
		result.IsCorrect = verdict.IsCorrect
		if verdict.Explanation != "" {
			result.Explanation = StripRationalePrefix(verdict.Explanation)
		}
	default:
		verdict, ok := g.ask(ctx, q, ai.EquivalenceInput{
			Question:      q.Question,
			CorrectAnswer: q.CorrectAnswer,
			StudentAnswer: answer,
			QuestionType:  string(q.Type),
		})
		if !ok {
			return result
		}
		result.IsCorrect = verdict.IsCorrect
		if verdict.Explanation != "" {
			result.Explanation = StripRationalePrefix(verdict.Explanation)
		}
	}

	return result
}

func (g *Grader) ask(ctx context.Context, q Question, input ai.EquivalenceInput) (ai.Verdict, bool) {
	verdict, err := g.judge.Judge(ctx, input)
	if err != nil {
		g.logger.Warn().Err(err).Str("question_id", q.ID).Str("type", string(q.Type)).Msg("judge unavailable, using deterministic grading")
		if g.onFallback != nil {
			g.onFallback(q.Type)
		}
		return ai.Verdict{}, false
	}
	return verdict, true
}

// DeterministicResult grades an answer by string comparison alone: trimmed
// uppercase equality for closed questions, case-insensitive trimmed equality
// for short answers.
func DeterministicResult(q Question, answer string) QuestionResult {
	var correct bool
	if q.Type.IsClosed() {
		correct = normalizeClosed(answer) == normalizeClosed(q.CorrectAnswer)
	} else {
		correct = strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	}

	return QuestionResult{
		QuestionID:    q.ID,
		StudentAnswer: answer,
		CorrectAnswer: q.CorrectAnswer,
		IsCorrect:     correct,
		Explanation:   StripRationalePrefix(q.Explanation),
	}
}

func normalizeClosed(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// optionText expands an option letter into its full "B. text" form so the
// judge sees what the learner actually picked.
func optionText(q Question, answer string) string {
	key := normalizeClosed(answer)
	if key == "" {
		return answer
	}
	for _, opt := range q.Options {
		if strings.HasPrefix(strings.ToUpper(opt), key+".") || strings.EqualFold(opt, key) {
			return opt
		}
	}
	return answer
}
