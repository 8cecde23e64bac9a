package models

import "time"

// BookingStatus tracks the lifecycle of a booking.
type BookingStatus string

const (
	BookingStatusPendingApproval BookingStatus = "PENDING_APPROVAL"
	BookingStatusApproved        BookingStatus = "APPROVED"
	BookingStatusRejected        BookingStatus = "REJECTED"
	BookingStatusCancelled       BookingStatus = "CANCELLED"
	BookingStatusDone            BookingStatus = "DONE"
)

// Terminal reports whether the status allows no further transitions.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusRejected, BookingStatusCancelled, BookingStatusDone:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a legal step:
// PENDING_APPROVAL -> APPROVED | REJECTED, APPROVED -> CANCELLED | DONE.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingStatusPendingApproval:
		return next == BookingStatusApproved || next == BookingStatusRejected
	case BookingStatusApproved:
		return next == BookingStatusCancelled || next == BookingStatusDone
	default:
		return false
	}
}

// Booking is a teacher's reserved time window, half-open [StartTime, EndTime).
// Bookings are never deleted, only status-transitioned.
type Booking struct {
	ID            string        `db:"id" json:"id"`
	TeacherID     string        `db:"teacher_id" json:"teacher_id"`
	InstitutionID *string       `db:"institution_id" json:"institution_id,omitempty"`
	ProgramID     *string       `db:"program_id" json:"program_id,omitempty"`
	StartTime     time.Time     `db:"start_time" json:"start_time"`
	EndTime       time.Time     `db:"end_time" json:"end_time"`
	Status        BookingStatus `db:"status" json:"status"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	DeviceIDs     []string      `db:"-" json:"device_ids,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingDetail extends Booking with display names joined from related
// records, used when reporting conflicts to operators.
type BookingDetail struct {
	Booking
	InstitutionName *string `db:"institution_name" json:"institution_name,omitempty"`
	ProgramName     *string `db:"program_name" json:"program_name,omitempty"`
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	TeacherID string
	Statuses  []BookingStatus
	DayStart  time.Time
	DayEnd    time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BookingConflict describes an existing booking that blocks a proposal.
type BookingConflict struct {
	BookingID       string    `json:"booking_id"`
	TeacherID       string    `json:"teacher_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	InstitutionName string    `json:"institution_name,omitempty"`
	ProgramName     string    `json:"program_name,omitempty"`
	Dimension       string    `json:"dimension"`
}

// BookingConflictError is returned when a proposed booking overlaps an
// existing non-terminal one.
type BookingConflictError struct {
	Message  string          `json:"message"`
	Conflict BookingConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
