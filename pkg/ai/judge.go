package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedVerdict indicates the judge replied with text that is not a verdict.
var ErrMalformedVerdict = errors.New("malformed judge verdict")

// ParseVerdict extracts a verdict from judge output. Code fences and prose
// around the JSON object are tolerated; a missing isCorrect field is not.
func ParseVerdict(content string) (Verdict, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Verdict{}, fmt.Errorf("%w: no json object in response", ErrMalformedVerdict)
	}

	var payload struct {
		IsCorrect   *bool  `json:"isCorrect"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if payload.IsCorrect == nil {
		return Verdict{}, fmt.Errorf("%w: isCorrect missing", ErrMalformedVerdict)
	}

	return Verdict{
		IsCorrect:   *payload.IsCorrect,
		Explanation: strings.TrimSpace(payload.Explanation),
	}, nil
}

func judgeSystemPrompt() string {
	return "You are an impartial grader for student assessments. Decide whether the student's answer is semantically " +
		"equivalent to the correct answer, ignoring spelling, casing, and phrasing differences that do not change the " +
		"meaning. Respond only with a JSON object: {\"isCorrect\": boolean, \"explanation\": string}."
}

func buildJudgePrompt(input EquivalenceInput) string {
	builder := strings.Builder{}
	builder.WriteString("## Question\n")
	builder.WriteString(input.Question)
	if input.QuestionType != "" {
		builder.WriteString("\n\n## Question Type\n")
		builder.WriteString(input.QuestionType)
	}
	builder.WriteString("\n\n## Correct Answer\n")
	builder.WriteString(input.CorrectAnswer)
	builder.WriteString("\n\n## Student Answer\n")
	if strings.TrimSpace(input.StudentAnswer) == "" {
		builder.WriteString("[No answer provided]")
	} else {
		builder.WriteString(input.StudentAnswer)
	}
	builder.WriteString("\n\nReturn JSON.")
	return builder.String()
}
