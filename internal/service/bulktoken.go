package service

import (
	"strconv"

	"github.com/classvr/fleet-api/internal/models"
)

// BulkMatchResult reports the outcome of reconciling pasted text against the
// eligible device pool. MatchedIDs is de-duplicated; UnmatchedNumbers keeps
// paste order and duplicates so operators see exactly what failed.
type BulkMatchResult struct {
	MatchedIDs       []string `json:"matched_ids"`
	UnmatchedNumbers []int    `json:"unmatched_numbers"`
}

// ExtractNumbers returns every maximal run of decimal digits in the text as
// integers, in order of appearance. Runs too large for int are dropped.
func ExtractNumbers(text string) []int {
	var numbers []int
	start := -1
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if n, err := strconv.Atoi(text[start:i]); err == nil {
				numbers = append(numbers, n)
			}
			start = -1
		}
	}
	if start >= 0 {
		if n, err := strconv.Atoi(text[start:]); err == nil {
			numbers = append(numbers, n)
		}
	}
	return numbers
}

// MatchTokens resolves pasted device numbers against the currently eligible
// pool. A number that exists in inventory but is not eligible for the active
// program is reported as unmatched rather than silently assigned.
func MatchTokens(text string, eligible []models.Device) BulkMatchResult {
	byNumber := make(map[int]string, len(eligible))
	for _, device := range eligible {
		byNumber[device.DisplayNumber] = device.ID
	}

	result := BulkMatchResult{}
	seen := make(map[string]struct{})
	for _, number := range ExtractNumbers(text) {
		id, ok := byNumber[number]
		if !ok {
			result.UnmatchedNumbers = append(result.UnmatchedNumbers, number)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result.MatchedIDs = append(result.MatchedIDs, id)
	}
	return result
}
