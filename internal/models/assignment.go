package models

import "time"

// ProgramAssignment is the committed result of a selection session: the set
// of devices assigned to a program, optionally tied to a booking.
type ProgramAssignment struct {
	ID        string    `db:"id" json:"id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	BookingID *string   `db:"booking_id" json:"booking_id,omitempty"`
	DeviceIDs []string  `db:"-" json:"device_ids"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
