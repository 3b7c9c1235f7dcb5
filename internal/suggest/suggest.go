// Package suggest finds the closest known name for a mistyped one.
package suggest

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxDistance is the maximum edit distance for a suggestion.
const MaxDistance = 3

// Closest returns the candidate nearest to input by Levenshtein distance, or
// an empty string if none is within MaxDistance.
func Closest(input string, candidates []string) string {
	input = strings.ToLower(strings.TrimSpace(input))

	minDist := math.MaxInt
	var suggestion string

	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(input, strings.ToLower(c))
		if dist < minDist {
			minDist = dist
			suggestion = c
		}
		// Early exit for exact match
		if dist == 0 {
			return c
		}
	}

	if minDist <= MaxDistance {
		return suggestion
	}
	return ""
}
