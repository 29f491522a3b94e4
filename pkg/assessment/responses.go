package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidResponses indicates a persisted responses blob that matches
// neither known encoding.
var ErrInvalidResponses = errors.New("invalid persisted responses")

// StoredResponses is the decoded form of a persisted responses blob. It is
// either LegacyResponses or GradedResponses.
type StoredResponses interface {
	// Answers returns the learner's answers keyed by question id.
	Answers() map[string]string
	storedResponses()
}

// LegacyResponses is the older encoding: a bare question id to answer map
// with no grading results.
type LegacyResponses map[string]string

// Answers implements StoredResponses.
func (l LegacyResponses) Answers() map[string]string { return l }

func (LegacyResponses) storedResponses() {}

// GradedResponses is the current encoding, carrying the results computed at
// submission time.
type GradedResponses struct {
	Responses       map[string]string `json:"responses"`
	QuestionResults []QuestionResult  `json:"questionResults"`
}

// Answers implements StoredResponses.
func (g GradedResponses) Answers() map[string]string { return g.Responses }

func (GradedResponses) storedResponses() {}

// EncodeResponses serialises answers and results in the current encoding.
func EncodeResponses(responses map[string]string, results []QuestionResult) (string, error) {
	if responses == nil {
		responses = map[string]string{}
	}
	if results == nil {
		results = []QuestionResult{}
	}
	payload, err := json.Marshal(GradedResponses{Responses: responses, QuestionResults: results})
	if err != nil {
		return "", fmt.Errorf("encode responses: %w", err)
	}
	return string(payload), nil
}

// DecodeResponses detects which encoding raw uses. A questionResults array
// selects GradedResponses; any other JSON object is read as legacy answers.
func DecodeResponses(raw string) (StoredResponses, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return LegacyResponses{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponses, err)
	}

	if rawResults, ok := fields["questionResults"]; ok && isJSONArray(rawResults) {
		var graded struct {
			Responses       map[string]json.RawMessage `json:"responses"`
			QuestionResults []QuestionResult           `json:"questionResults"`
		}
		if err := json.Unmarshal([]byte(raw), &graded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponses, err)
		}
		return GradedResponses{
			Responses:       answerMap(graded.Responses),
			QuestionResults: graded.QuestionResults,
		}, nil
	}

	return LegacyResponses(answerMap(fields)), nil
}

// answerMap flattens answer values to strings. Older clients sometimes wrote
// numbers or booleans.
func answerMap(fields map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		out[key] = answerString(value)
	}
	return out
}

func answerString(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var b bool
	if err := json.Unmarshal(value, &b); err == nil {
		if b {
			return "True"
		}
		return "False"
	}
	var f float64
	if err := json.Unmarshal(value, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func isJSONArray(value json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(value))
	return strings.HasPrefix(trimmed, "[")
}

// ReconstructResult rebuilds a SubmissionResult for review without grading
// anything again. Graded records are returned verbatim; legacy records are
// compared against questions by string equality alone.
func ReconstructResult(stored StoredResponses, questions []Question, score float64) SubmissionResult {
	switch v := stored.(type) {
	case GradedResponses:
		return NewSubmissionResult(score, v.QuestionResults)
	case LegacyResponses:
		results := make([]QuestionResult, 0, len(questions))
		for _, q := range questions {
			results = append(results, DeterministicResult(q, v[q.ID]))
		}
		return NewSubmissionResult(score, results)
	default:
		return NewSubmissionResult(score, nil)
	}
}
