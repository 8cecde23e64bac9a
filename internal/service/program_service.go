package service

import (
	"context"
	"database/sql"
	"sort"

	"go.uber.org/zap"

	"github.com/classvr/fleet-api/internal/models"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ContentProgram, int, error)
	FindByID(ctx context.Context, id string) (*models.ProgramDetail, error)
}

// ProgramService exposes content programs and their derived requirements.
type ProgramService struct {
	repo   programRepository
	logger *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(repo programRepository, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, logger: logger}
}

// List returns programs plus pagination data.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.ContentProgram, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return programs, pagination, nil
}

// Get returns a program with its structural content references.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.ProgramDetail, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// RequiredContent returns the de-duplicated union of content units the
// program references, sorted for stable output.
func (s *ProgramService) RequiredContent(ctx context.Context, id string) ([]string, error) {
	program, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := program.RequiredContentSet()
	units := make([]string, 0, len(set))
	for id := range set {
		units = append(units, id)
	}
	sort.Strings(units)
	return units, nil
}
