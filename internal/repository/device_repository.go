package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classvr/fleet-api/internal/models"
)

// DeviceRepository manages persistence for headsets.
type DeviceRepository struct {
	db    *sqlx.DB
	retry *Retryer
}

// NewDeviceRepository constructs a DeviceRepository.
func NewDeviceRepository(db *sqlx.DB, retry *Retryer) *DeviceRepository {
	return &DeviceRepository{db: db, retry: retry}
}

const deviceColumns = "id, display_number, disabled, disable_reason, health_state, created_at, updated_at"

// List returns devices matching filters along with total count.
func (r *DeviceRepository) List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, int, error) {
	base := "FROM devices WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.HealthState != "" {
		conditions = append(conditions, fmt.Sprintf("health_state = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.HealthState))
	}
	if filter.Disabled != nil {
		conditions = append(conditions, fmt.Sprintf("disabled = $%d", len(args)+1))
		args = append(args, *filter.Disabled)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("CAST(display_number AS TEXT) LIKE $%d", len(args)+1))
		args = append(args, filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "display_number"
	}
	allowedSorts := map[string]string{
		"display_number": "display_number",
		"health_state":   "health_state",
		"created_at":     "created_at",
		"updated_at":     "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "display_number"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", deviceColumns, base, column, order, size, offset)
	var devices []models.Device
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &devices, query, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list devices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &total, countQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count devices: %w", err)
	}

	return devices, total, nil
}

// ListAll returns the whole fleet without pagination, used by the
// eligibility resolver.
func (r *DeviceRepository) ListAll(ctx context.Context) ([]models.Device, error) {
	query := fmt.Sprintf("SELECT %s FROM devices ORDER BY display_number ASC", deviceColumns)
	var devices []models.Device
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &devices, query)
	})
	if err != nil {
		return nil, fmt.Errorf("list all devices: %w", err)
	}
	return devices, nil
}

// FindByID fetches a device by ID.
func (r *DeviceRepository) FindByID(ctx context.Context, id string) (*models.Device, error) {
	query := fmt.Sprintf("SELECT %s FROM devices WHERE id = $1", deviceColumns)
	var device models.Device
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &device, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Create inserts a new device record.
func (r *DeviceRepository) Create(ctx context.Context, device *models.Device) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now
	if device.HealthState == "" {
		device.HealthState = models.DeviceHealthAvailable
	}

	const query = `INSERT INTO devices (id, display_number, disabled, disable_reason, health_state, created_at, updated_at)
		VALUES (:id, :display_number, :disabled, :disable_reason, :health_state, :created_at, :updated_at)`
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		_, execErr := r.db.NamedExecContext(ctx, query, device)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

// UpdateHealth changes the health state, disabled flag and reason of a device.
func (r *DeviceRepository) UpdateHealth(ctx context.Context, id string, state models.DeviceHealthState, disabled bool, reason *string) error {
	const query = `UPDATE devices SET health_state = $2, disabled = $3, disable_reason = $4, updated_at = $5 WHERE id = $1`
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		_, execErr := r.db.ExecContext(ctx, query, id, state, disabled, reason, time.Now().UTC())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update device health: %w", err)
	}
	return nil
}
