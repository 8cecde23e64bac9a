package service

import "time"

// Interval is a half-open time window [Start, End) occupied by one resource.
type Interval struct {
	Start      time.Time
	End        time.Time
	ResourceID string
}

// overlaps reports whether two half-open intervals on the same resource
// collide. Touching endpoints (a.End == b.Start) do not overlap.
func overlaps(a, b Interval) bool {
	if a.ResourceID != b.ResourceID {
		return false
	}
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// findConflict scans existing intervals for the first one colliding with the
// candidate. The caller pre-filters the set to a single day and to
// non-terminal bookings; a linear scan is fine at that size.
func findConflict(existing []Interval, candidate Interval) (int, bool) {
	for i, iv := range existing {
		if overlaps(iv, candidate) {
			return i, true
		}
	}
	return -1, false
}

// HasConflict reports whether the candidate collides with any existing
// interval on the same resource.
func HasConflict(existing []Interval, candidate Interval) bool {
	_, found := findConflict(existing, candidate)
	return found
}
