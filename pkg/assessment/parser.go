package assessment

import (
	"fmt"
	"regexp"
	"strings"
)

// minSectionLength is the shortest "## Questions" section trusted as real.
// Anything shorter is treated as a stray heading and the full text is scanned.
const minSectionLength = 50

var (
	sectionHeadingRe = map[string]*regexp.Regexp{
		"questions":  regexp.MustCompile(`(?im)^[ \t]*##[ \t]*questions\b.*$`),
		"overview":   regexp.MustCompile(`(?im)^[ \t]*##[ \t]*assessment[ \t]+overview\b.*$`),
		"objectives": regexp.MustCompile(`(?im)^[ \t]*##[ \t]*learning[ \t]+objectives\b.*$`),
	}
	nextHeadingRe = regexp.MustCompile(`(?m)^[ \t]*##(?:[^#]|$)`)

	markerRe      = regexp.MustCompile(`(?i)question\s+(\d+)\s*:[ \t]*\[?([^\]\n]*)\]?`)
	answerLabelRe = regexp.MustCompile(`(?i)[*_\s]*correct\s+answer[*_\s]*:[*_ \t]*`)
	rationaleRe   = regexp.MustCompile(`(?i)^[*_\s]*(?:rationale|justification)[*_\s]*:[*_ \t]*`)
	optionLineRe  = regexp.MustCompile(`(?i)^[(\s]*([A-D])[.)]\s*(.+)$`)
	mcqLetterRe   = regexp.MustCompile(`(?i)^\(?([A-D])(?:[.):]|\s|$)`)
	trueFalseRe   = regexp.MustCompile(`(?i)\(?[ \t]*true[ \t]*/[ \t]*false[ \t]*\)?`)
	placeholderRe = regexp.MustCompile(`(?i)\[?[ \t]*enter your answer here(?:\.{3}|…)?[ \t]*\]?`)
	bulletRe      = regexp.MustCompile(`(?m)^[ \t]*[-*][ \t]+(.+?)[ \t]*$`)

	emphasisStripper = strings.NewReplacer("*", "", "`", "", "_", "")
)

// Parse converts raw assessment text into typed questions plus optional
// overview and learning objectives. It never fails: malformed input yields
// fewer or no questions.
func Parse(text string) ParsedAssessment {
	parsed := ParsedAssessment{Questions: []Question{}}

	if overview, ok := section(text, "overview"); ok {
		parsed.Overview = strings.TrimSpace(overview)
	}
	if objectives, ok := section(text, "objectives"); ok {
		for _, m := range bulletRe.FindAllStringSubmatch(objectives, -1) {
			parsed.LearningObjectives = append(parsed.LearningObjectives, strings.TrimSpace(m[1]))
		}
	}

	search := text
	if body, ok := section(text, "questions"); ok {
		body = strings.TrimSpace(body)
		if len(body) >= minSectionLength || len(text) <= minSectionLength {
			search = body
		}
	}

	for _, block := range splitBlocks(search) {
		if q, ok := parseBlock(block); ok {
			parsed.Questions = append(parsed.Questions, q)
		}
	}

	return parsed
}

func section(text, name string) (string, bool) {
	loc := sectionHeadingRe[name].FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if next := nextHeadingRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest, true
}

type rawBlock struct {
	number string
	label  string
	body   string
}

// splitBlocks cuts text at every "Question N:" marker, in source order.
func splitBlocks(text string) []rawBlock {
	matches := markerRe.FindAllStringSubmatchIndex(text, -1)
	blocks := make([]rawBlock, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		blocks = append(blocks, rawBlock{
			number: text[m[2]:m[3]],
			label:  text[m[4]:m[5]],
			body:   text[m[1]:end],
		})
	}
	return blocks
}

// ClassifyType maps a free-form question type label onto a QuestionType.
func ClassifyType(label string) QuestionType {
	l := strings.ToLower(strings.NewReplacer("-", " ", "_", " ").Replace(label))
	switch {
	case strings.Contains(l, "multiple choice") || strings.Contains(l, "mcq"):
		return TypeMCQ
	case strings.Contains(l, "true") && strings.Contains(l, "false"):
		return TypeTrueFalse
	default:
		return TypeShortAnswer
	}
}

func parseBlock(block rawBlock) (Question, bool) {
	q := Question{
		ID:   fmt.Sprintf("question-%s", block.number),
		Type: ClassifyType(block.label),
	}

	lines := strings.Split(strings.ReplaceAll(block.body, "\r\n", "\n"), "\n")

	lines, q.CorrectAnswer = extractAnswer(lines)
	lines, q.Explanation = extractRationale(lines)

	switch q.Type {
	case TypeMCQ:
		lines, q.Options = extractOptions(lines)
		q.CorrectAnswer = canonicalLetter(q.CorrectAnswer)
	case TypeTrueFalse:
		for i, line := range lines {
			lines[i] = trueFalseRe.ReplaceAllString(line, "")
		}
		q.Options = []string{"True", "False"}
		q.CorrectAnswer = canonicalTrueFalse(q.CorrectAnswer)
	}

	for i, line := range lines {
		lines[i] = placeholderRe.ReplaceAllString(line, "")
	}

	q.Question = joinBody(lines)
	if q.Question == "" {
		return Question{}, false
	}
	return q, true
}

// extractAnswer removes every "Correct Answer:" label, keeping the first value.
func extractAnswer(lines []string) ([]string, string) {
	answer := ""
	found := false
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		loc := answerLabelRe.FindStringIndex(line)
		if loc == nil {
			kept = append(kept, line)
			continue
		}
		if !found {
			answer = strings.TrimSpace(emphasisStripper.Replace(line[loc[1]:]))
			found = true
		}
		if before := line[:loc[0]]; strings.TrimSpace(before) != "" {
			kept = append(kept, before)
		}
	}
	return kept, answer
}

// extractRationale treats everything from the first rationale label to the
// end of the block as the explanation.
func extractRationale(lines []string) ([]string, string) {
	for i, line := range lines {
		if !rationaleRe.MatchString(line) {
			continue
		}
		explanation := strings.TrimSpace(strings.Join(lines[i:], "\n"))
		return lines[:i], StripRationalePrefix(explanation)
	}
	return lines, ""
}

// extractOptions pulls lettered option lines. Fewer than two matches leaves
// the lines untouched.
func extractOptions(lines []string) ([]string, []string) {
	var options []string
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		m := optionLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			kept = append(kept, line)
			continue
		}
		options = append(options, strings.ToUpper(m[1])+". "+strings.TrimSpace(m[2]))
	}
	if len(options) < 2 {
		return lines, nil
	}
	return kept, options
}

// StripRationalePrefix removes a leading "Rationale:" or "Justification:" label.
func StripRationalePrefix(s string) string {
	return strings.TrimSpace(rationaleRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

func canonicalLetter(answer string) string {
	if m := mcqLetterRe.FindStringSubmatch(answer); m != nil {
		return strings.ToUpper(m[1])
	}
	return answer
}

func canonicalTrueFalse(answer string) string {
	switch strings.ToLower(strings.TrimRight(answer, ". ")) {
	case "true":
		return "True"
	case "false":
		return "False"
	}
	return answer
}

// joinBody drops decoration-only lines and collapses blank runs.
func joinBody(lines []string) string {
	var b strings.Builder
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blank = b.Len() > 0
			continue
		}
		if isDecoration(trimmed) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
			if blank {
				b.WriteString("\n")
			}
		}
		blank = false
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}

func isDecoration(s string) bool {
	return strings.Trim(s, "#*_-=>` \t") == ""
}
