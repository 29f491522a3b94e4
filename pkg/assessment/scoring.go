package assessment

import "math"

// MaxTimeBonus is the bonus awarded for finishing within half the allotted time.
const MaxTimeBonus = 5.0

// ScoreInput carries everything the scoring policy needs.
type ScoreInput struct {
	CorrectCount   int
	TotalQuestions int
	ContentType    string
	// TimeSpent and TotalDuration are in seconds.
	TimeSpent     int
	TotalDuration int
}

// ScoreBreakdown exposes the parts that make up a final score.
type ScoreBreakdown struct {
	BaseScore  float64
	TimeBonus  float64
	FinalScore float64
}

// Score applies the percentage score plus the bounded time bonus. The bonus
// only applies to timed assessments, never to quizzes.
func Score(in ScoreInput) ScoreBreakdown {
	var base float64
	if in.TotalQuestions > 0 {
		base = float64(in.CorrectCount) / float64(in.TotalQuestions) * 100
	}

	var bonus float64
	if in.ContentType == ContentTypeAssessment && in.TotalDuration > 0 && in.TotalQuestions > 0 {
		bonus = TimeBonus(float64(in.TimeSpent) / float64(in.TotalDuration))
	}

	return ScoreBreakdown{
		BaseScore:  base,
		TimeBonus:  bonus,
		FinalScore: clamp(base+bonus, 0, 100),
	}
}

// TimeBonus maps the fraction of allotted time used onto a bonus: the full
// bonus up to half the time, decaying linearly to zero at the full time.
func TimeBonus(ratio float64) float64 {
	switch {
	case ratio <= 0.5:
		return MaxTimeBonus
	case ratio < 1:
		return MaxTimeBonus * (1 - ratio) * 2
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
