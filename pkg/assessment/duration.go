package assessment

import (
	"math"
	"regexp"
	"strconv"
)

// MaxDurationSeconds bounds parsed durations. Larger totals are treated as
// unparseable.
const MaxDurationSeconds = math.MaxInt32

var (
	hoursRe   = regexp.MustCompile(`(?i)(\d+)\s*h(?:our)?s?`)
	minutesRe = regexp.MustCompile(`(?i)(\d+)\s*m(?:in(?:ute)?)?s?`)
	bareIntRe = regexp.MustCompile(`\d+`)
)

// ParseDurationSeconds converts a human duration such as "45 minutes" or
// "1 hour 30 minutes" into seconds. A bare number is read as minutes.
// Empty, unrecognised or out of range input yields 0.
func ParseDurationSeconds(s string) int {
	if s == "" {
		return 0
	}

	total := 0
	for _, part := range []struct {
		re   *regexp.Regexp
		unit int
	}{{hoursRe, 3600}, {minutesRe, 60}} {
		m := part.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		seconds, ok := scaled(m[1], part.unit)
		if !ok || seconds > MaxDurationSeconds-total {
			return 0
		}
		total += seconds
	}

	if total == 0 {
		if m := bareIntRe.FindString(s); m != "" {
			seconds, ok := scaled(m, 60)
			if !ok {
				return 0
			}
			total = seconds
		}
	}
	return total
}

// scaled multiplies a decimal count by unit, failing instead of overflowing.
func scaled(digits string, unit int) (int, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > MaxDurationSeconds/unit {
		return 0, false
	}
	return n * unit, true
}
