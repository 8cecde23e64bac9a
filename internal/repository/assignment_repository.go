package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classvr/fleet-api/internal/models"
)

// AssignmentRepository persists committed program assignments and their
// device sets.
type AssignmentRepository struct {
	db    *sqlx.DB
	retry *Retryer
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB, retry *Retryer) *AssignmentRepository {
	return &AssignmentRepository{db: db, retry: retry}
}

// Create writes the assignment and its device rows in one transaction.
// Either everything commits or nothing does.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.ProgramAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}

	return r.retry.Do(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin assignment tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		const assignmentQuery = `INSERT INTO program_assignments (id, program_id, booking_id, created_at)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, assignmentQuery, assignment.ID, assignment.ProgramID, assignment.BookingID, assignment.CreatedAt); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		const deviceQuery = `INSERT INTO assignment_devices (assignment_id, device_id) VALUES ($1, $2)`
		for _, deviceID := range assignment.DeviceIDs {
			if _, err := tx.ExecContext(ctx, deviceQuery, assignment.ID, deviceID); err != nil {
				return fmt.Errorf("insert assignment device: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit assignment tx: %w", err)
		}
		return nil
	})
}

// FindByID fetches an assignment and its device set.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.ProgramAssignment, error) {
	const query = `SELECT id, program_id, booking_id, created_at FROM program_assignments WHERE id = $1`
	var assignment models.ProgramAssignment
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &assignment, query, id)
	})
	if err != nil {
		return nil, err
	}

	const devicesQuery = `SELECT device_id FROM assignment_devices WHERE assignment_id = $1 ORDER BY device_id`
	var deviceIDs []string
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &deviceIDs, devicesQuery, id)
	})
	if err != nil {
		return nil, fmt.Errorf("list assignment devices: %w", err)
	}
	assignment.DeviceIDs = deviceIDs

	return &assignment, nil
}

// ListByProgram returns assignments recorded for a program, newest first.
func (r *AssignmentRepository) ListByProgram(ctx context.Context, programID string) ([]models.ProgramAssignment, error) {
	const query = `SELECT id, program_id, booking_id, created_at FROM program_assignments WHERE program_id = $1 ORDER BY created_at DESC`
	var assignments []models.ProgramAssignment
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &assignments, query, programID)
	})
	if err != nil {
		return nil, fmt.Errorf("list program assignments: %w", err)
	}
	return assignments, nil
}
