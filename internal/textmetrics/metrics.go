// Package textmetrics provides the text measurements used for memory
// budgeting and command matching.
package textmetrics

import (
	"math"
	"strings"
)

// Counter estimates the number of model tokens in a piece of text.
type Counter func(text string) int

// wordTokenRatio is the average number of tokens per whitespace word for
// English prose on llama-family tokenizers.
const wordTokenRatio = 1.3

// ApproximateTokenCount returns round(words * 1.3), where words are
// maximal runs of non-whitespace characters. Empty or all-whitespace
// text yields 0.
func ApproximateTokenCount(text string) int {
	words := len(strings.Fields(text))
	return int(math.Round(float64(words) * wordTokenRatio))
}

// EstimateTokens returns a character-based estimate (about 4 characters
// per token), rounded up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// CounterByName maps a configuration value to a Counter. Unknown names
// fall back to ApproximateTokenCount.
func CounterByName(name string) Counter {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chars", "characters":
		return EstimateTokens
	default:
		return ApproximateTokenCount
	}
}

// EditDistance computes the Levenshtein distance between a and b using
// unit-cost insertions, deletions and substitutions over runes, so "café"
// and "cafe" are one edit apart.
// Uses a single-row DP table sized to the shorter string.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur := min(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = cur
		}
	}
	return row[len(rb)]
}
