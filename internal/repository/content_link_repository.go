package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classvr/fleet-api/internal/models"
)

// ContentLinkRepository manages device <-> content installation links.
type ContentLinkRepository struct {
	db    *sqlx.DB
	retry *Retryer
}

// NewContentLinkRepository constructs a ContentLinkRepository.
func NewContentLinkRepository(db *sqlx.DB, retry *Retryer) *ContentLinkRepository {
	return &ContentLinkRepository{db: db, retry: retry}
}

const linkColumns = "id, device_id, content_unit_id, installed_at"

// ListAll returns every installation link in the fleet. The eligibility
// resolver builds per-device installed sets from this.
func (r *ContentLinkRepository) ListAll(ctx context.Context) ([]models.DeviceContentLink, error) {
	query := fmt.Sprintf("SELECT %s FROM device_content_links", linkColumns)
	var links []models.DeviceContentLink
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &links, query)
	})
	if err != nil {
		return nil, fmt.Errorf("list content links: %w", err)
	}
	return links, nil
}

// ListByDevice returns installation links for one device.
func (r *ContentLinkRepository) ListByDevice(ctx context.Context, deviceID string) ([]models.DeviceContentLink, error) {
	query := fmt.Sprintf("SELECT %s FROM device_content_links WHERE device_id = $1", linkColumns)
	var links []models.DeviceContentLink
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &links, query, deviceID)
	})
	if err != nil {
		return nil, fmt.Errorf("list device content links: %w", err)
	}
	return links, nil
}

// Create records a content unit as installed on a device.
func (r *ContentLinkRepository) Create(ctx context.Context, link *models.DeviceContentLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.InstalledAt.IsZero() {
		link.InstalledAt = time.Now().UTC()
	}

	const query = `INSERT INTO device_content_links (id, device_id, content_unit_id, installed_at)
		VALUES (:id, :device_id, :content_unit_id, :installed_at)
		ON CONFLICT (device_id, content_unit_id) DO NOTHING`
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		_, execErr := r.db.NamedExecContext(ctx, query, link)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("create content link: %w", err)
	}
	return nil
}

// Delete removes an installation link.
func (r *ContentLinkRepository) Delete(ctx context.Context, deviceID, contentUnitID string) error {
	const query = `DELETE FROM device_content_links WHERE device_id = $1 AND content_unit_id = $2`
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		_, execErr := r.db.ExecContext(ctx, query, deviceID, contentUnitID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete content link: %w", err)
	}
	return nil
}
