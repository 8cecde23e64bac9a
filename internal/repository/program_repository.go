package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/classvr/fleet-api/internal/models"
)

// ProgramRepository reads content programs and their structural references.
type ProgramRepository struct {
	db    *sqlx.DB
	retry *Retryer
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB, retry *Retryer) *ProgramRepository {
	return &ProgramRepository{db: db, retry: retry}
}

const programColumns = "id, name, description, created_at, updated_at"

// List returns programs matching filters along with total count.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ContentProgram, int, error) {
	base := "FROM content_programs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "name"
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", programColumns, base, column, order, size, offset)
	var programs []models.ContentProgram
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &programs, query, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &total, countQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}

	return programs, total, nil
}

// FindByID fetches a program together with every content reference in its
// structure (session steps, teaching materials, enrichment materials,
// experience references).
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM content_programs WHERE id = $1", programColumns)
	var program models.ContentProgram
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &program, query, id)
	})
	if err != nil {
		return nil, err
	}

	const refsQuery = `SELECT id, program_id, content_unit_id, source FROM program_content_refs WHERE program_id = $1 ORDER BY source, content_unit_id`
	var refs []models.ProgramContentRef
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &refs, refsQuery, id)
	})
	if err != nil {
		return nil, fmt.Errorf("list program content refs: %w", err)
	}

	return &models.ProgramDetail{ContentProgram: program, ContentRefs: refs}, nil
}
