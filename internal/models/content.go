package models

import "time"

// ContentUnit is an installable VR app or experience.
type ContentUnit struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Vendor    *string   `db:"vendor" json:"vendor,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
