package history

import "fmt"

// patternWindow caps how many recent runs pattern analysis examines.
const patternWindow = 10

// PatternSummary classifies the recent pass/fail pattern of the note's
// runs. Rules apply in order; the first match wins:
//
//  1. every examined run passed, or every examined run failed
//  2. recently fixed: the two (or more) newest runs pass and two or
//     more consecutive failures appear earlier in the window
//  3. alternating: no two consecutive runs share an outcome
//  4. generic majority
//
// Returns "" when there are no runs.
func (n *Note) PatternSummary() string {
	if n == nil || len(n.Runs) == 0 {
		return ""
	}

	runs := n.Runs
	if len(runs) > patternWindow {
		runs = runs[len(runs)-patternWindow:]
	}

	// Most recent first.
	recent := make([]bool, len(runs))
	for i, run := range runs {
		recent[len(runs)-1-i] = run.Passed
	}
	return classify(recent)
}

func classify(recent []bool) string {
	k := len(recent)

	passes, fails := 0, 0
	for _, passed := range recent {
		if passed {
			passes++
		} else {
			fails++
		}
	}

	if fails == 0 {
		return fmt.Sprintf("Passed last %d runs", k)
	}
	if passes == 0 {
		return fmt.Sprintf("Failed last %d runs", k)
	}

	if passStreak := leadingStreak(recent, true); passStreak >= 2 {
		if hasStreak(recent[passStreak:], false, 2) {
			return "Recently fixed (was failing)"
		}
	}

	if maxStreak(recent) < 2 {
		return "Flaky (alternating)"
	}

	switch {
	case passes > fails:
		return fmt.Sprintf("Mostly passing (%d/%d)", passes, k)
	case fails > passes:
		return fmt.Sprintf("Mostly failing (%d/%d)", fails, k)
	default:
		return fmt.Sprintf("Mixed (%d passed, %d failed)", passes, fails)
	}
}

// leadingStreak counts how many runs at the head of the slice share the
// given outcome.
func leadingStreak(recent []bool, outcome bool) int {
	streak := 0
	for _, passed := range recent {
		if passed != outcome {
			break
		}
		streak++
	}
	return streak
}

// hasStreak reports whether n or more consecutive runs with the given
// outcome appear anywhere in the slice.
func hasStreak(recent []bool, outcome bool, n int) bool {
	streak := 0
	for _, passed := range recent {
		if passed != outcome {
			streak = 0
			continue
		}
		streak++
		if streak >= n {
			return true
		}
	}
	return false
}

// maxStreak returns the length of the longest run of identical outcomes.
func maxStreak(recent []bool) int {
	longest, current := 0, 0
	for i, passed := range recent {
		if i == 0 || passed == recent[i-1] {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}
