package models

import "time"

// DeviceHealthState describes the operational state of a headset.
type DeviceHealthState string

const (
	DeviceHealthAvailable   DeviceHealthState = "AVAILABLE"
	DeviceHealthMaintenance DeviceHealthState = "MAINTENANCE"
	DeviceHealthDisabled    DeviceHealthState = "DISABLED"
)

// Device represents a VR headset in the fleet. The display number is the
// human-facing label printed on the unit, distinct from the storage id.
type Device struct {
	ID            string            `db:"id" json:"id"`
	DisplayNumber int               `db:"display_number" json:"display_number"`
	Disabled      bool              `db:"disabled" json:"disabled"`
	DisableReason *string           `db:"disable_reason" json:"disable_reason,omitempty"`
	HealthState   DeviceHealthState `db:"health_state" json:"health_state"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// DeviceFilter defines filter criteria for listing devices.
type DeviceFilter struct {
	HealthState string
	Disabled    *bool
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// DeviceContentLink pairs a device with an installed content unit.
type DeviceContentLink struct {
	ID            string    `db:"id" json:"id"`
	DeviceID      string    `db:"device_id" json:"device_id"`
	ContentUnitID string    `db:"content_unit_id" json:"content_unit_id"`
	InstalledAt   time.Time `db:"installed_at" json:"installed_at"`
}
