package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classvr/fleet-api/internal/models"
)

func TestExtractNumbers(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []int
	}{
		{"comma separated", "100, 205, 300", []int{100, 205, 300}},
		{"mixed garbage", "Unit ABC999 and 12;7", []int{999, 12, 7}},
		{"digits split by letters", "1a2b3", []int{1, 2, 3}},
		{"trailing run", "pads 42", []int{42}},
		{"no digits", "nothing here", nil},
		{"empty", "", nil},
		{"duplicates kept in order", "5 5 3 5", []int{5, 5, 3, 5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractNumbers(tc.text))
		})
	}
}

func TestMatchTokens(t *testing.T) {
	eligible := []models.Device{
		{ID: "dev-100", DisplayNumber: 100},
		{ID: "dev-300", DisplayNumber: 300},
	}

	result := MatchTokens("100, 205, ABC999", eligible)
	assert.Equal(t, []string{"dev-100"}, result.MatchedIDs)
	assert.Equal(t, []int{205, 999}, result.UnmatchedNumbers)
}

func TestMatchTokensDeduplicatesMatches(t *testing.T) {
	eligible := []models.Device{
		{ID: "dev-7", DisplayNumber: 7},
	}

	result := MatchTokens("7 7 7 8", eligible)
	assert.Equal(t, []string{"dev-7"}, result.MatchedIDs)
	assert.Equal(t, []int{8}, result.UnmatchedNumbers)
}

func TestMatchTokensEmptyPool(t *testing.T) {
	result := MatchTokens("1 2 3", nil)
	assert.Empty(t, result.MatchedIDs)
	assert.Equal(t, []int{1, 2, 3}, result.UnmatchedNumbers)
}
