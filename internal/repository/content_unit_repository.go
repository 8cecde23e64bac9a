package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/classvr/fleet-api/internal/models"
)

// ContentUnitRepository reads the installable content catalog. The catalog is
// synced in from the content platform; this service never writes it.
type ContentUnitRepository struct {
	db    *sqlx.DB
	retry *Retryer
}

// NewContentUnitRepository constructs a ContentUnitRepository.
func NewContentUnitRepository(db *sqlx.DB, retry *Retryer) *ContentUnitRepository {
	return &ContentUnitRepository{db: db, retry: retry}
}

const contentUnitColumns = "id, title, vendor, created_at"

// List returns content units, optionally filtered by a title search.
func (r *ContentUnitRepository) List(ctx context.Context, search string) ([]models.ContentUnit, error) {
	query := fmt.Sprintf("SELECT %s FROM content_units", contentUnitColumns)
	var args []interface{}
	if search != "" {
		query += " WHERE LOWER(title) LIKE $1"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += " ORDER BY title ASC"

	var units []models.ContentUnit
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &units, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list content units: %w", err)
	}
	return units, nil
}

// FindByID fetches a content unit by ID.
func (r *ContentUnitRepository) FindByID(ctx context.Context, id string) (*models.ContentUnit, error) {
	query := fmt.Sprintf("SELECT %s FROM content_units WHERE id = $1", contentUnitColumns)
	var unit models.ContentUnit
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &unit, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}
