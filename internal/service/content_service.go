package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/classvr/fleet-api/internal/models"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
)

type contentUnitRepository interface {
	List(ctx context.Context, search string) ([]models.ContentUnit, error)
	FindByID(ctx context.Context, id string) (*models.ContentUnit, error)
}

// ContentService exposes the read-only content unit catalog.
type ContentService struct {
	repo   contentUnitRepository
	logger *zap.Logger
}

// NewContentService constructs a ContentService.
func NewContentService(repo contentUnitRepository, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{repo: repo, logger: logger}
}

// List returns catalog entries, optionally filtered by title search.
func (s *ContentService) List(ctx context.Context, search string) ([]models.ContentUnit, error) {
	units, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content units")
	}
	return units, nil
}

// Get returns a single catalog entry.
func (s *ContentService) Get(ctx context.Context, id string) (*models.ContentUnit, error) {
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content unit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content unit")
	}
	return unit, nil
}
