package ai

import "context"

// EquivalenceInput describes one answer to be judged against the reference.
type EquivalenceInput struct {
	Question      string
	CorrectAnswer string
	StudentAnswer string
	QuestionType  string
}

// Verdict is the judge's decision on a single answer.
type Verdict struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
}

// Judge decides whether a student answer is semantically equivalent to the
// reference answer.
type Judge interface {
	Judge(ctx context.Context, input EquivalenceInput) (Verdict, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, input EquivalenceInput) (Verdict, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, input EquivalenceInput) (Verdict, error) {
	return f(ctx, input)
}
