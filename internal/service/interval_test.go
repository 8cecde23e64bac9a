package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}

func TestOverlapsHalfOpen(t *testing.T) {
	day := "2026-09-07T"
	cases := []struct {
		name     string
		aStart   string
		aEnd     string
		bStart   string
		bEnd     string
		resource string
		other    string
		want     bool
	}{
		{"partial overlap", "09:00", "11:00", "10:30", "12:00", "t1", "t1", true},
		{"contained", "09:00", "12:00", "10:00", "11:00", "t1", "t1", true},
		{"identical", "09:00", "11:00", "09:00", "11:00", "t1", "t1", true},
		{"touching end to start", "09:00", "11:00", "11:00", "12:00", "t1", "t1", false},
		{"touching start to end", "11:00", "12:00", "09:00", "11:00", "t1", "t1", false},
		{"disjoint", "09:00", "10:00", "13:00", "14:00", "t1", "t1", false},
		{"different resource", "09:00", "11:00", "10:30", "12:00", "t1", "t2", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Interval{
				Start:      mustTime(t, day+tc.aStart+":00Z"),
				End:        mustTime(t, day+tc.aEnd+":00Z"),
				ResourceID: tc.resource,
			}
			b := Interval{
				Start:      mustTime(t, day+tc.bStart+":00Z"),
				End:        mustTime(t, day+tc.bEnd+":00Z"),
				ResourceID: tc.other,
			}
			assert.Equal(t, tc.want, overlaps(a, b))
			assert.Equal(t, tc.want, overlaps(b, a), "overlap must be symmetric")
		})
	}
}

func TestFindConflict(t *testing.T) {
	existing := []Interval{
		{Start: mustTime(t, "2026-09-07T08:00:00Z"), End: mustTime(t, "2026-09-07T09:00:00Z"), ResourceID: "t1"},
		{Start: mustTime(t, "2026-09-07T09:00:00Z"), End: mustTime(t, "2026-09-07T11:00:00Z"), ResourceID: "t1"},
	}

	idx, found := findConflict(existing, Interval{
		Start:      mustTime(t, "2026-09-07T10:30:00Z"),
		End:        mustTime(t, "2026-09-07T12:00:00Z"),
		ResourceID: "t1",
	})
	assert.True(t, found)
	assert.Equal(t, 1, idx)

	_, found = findConflict(existing, Interval{
		Start:      mustTime(t, "2026-09-07T11:00:00Z"),
		End:        mustTime(t, "2026-09-07T12:00:00Z"),
		ResourceID: "t1",
	})
	assert.False(t, found, "window starting at an existing end must not conflict")

	_, found = findConflict(nil, Interval{
		Start:      mustTime(t, "2026-09-07T10:00:00Z"),
		End:        mustTime(t, "2026-09-07T11:00:00Z"),
		ResourceID: "t1",
	})
	assert.False(t, found)
}
