package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classvr/fleet-api/internal/models"
)

// ErrOverlapRace is returned when the conditional insert loses to a booking
// committed between the service-level conflict check and the write.
var ErrOverlapRace = errors.New("overlapping booking committed concurrently")

// BookingRepository manages persistence for bookings.
type BookingRepository struct {
	db    *sqlx.DB
	retry *Retryer
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB, retry *Retryer) *BookingRepository {
	return &BookingRepository{db: db, retry: retry}
}

const bookingDetailColumns = `b.id, b.teacher_id, b.institution_id, b.program_id, b.start_time, b.end_time, b.status, b.notes, b.created_at, b.updated_at, i.name AS institution_name, p.name AS program_name`

const bookingDetailJoins = `FROM bookings b
	LEFT JOIN institutions i ON i.id = b.institution_id
	LEFT JOIN content_programs p ON p.id = b.program_id`

// ListNonTerminalByTeacherWindow returns PENDING_APPROVAL and APPROVED
// bookings for a teacher overlapping the half-open window [from, to).
func (r *BookingRepository) ListNonTerminalByTeacherWindow(ctx context.Context, teacherID string, from, to time.Time) ([]models.BookingDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
	WHERE b.teacher_id = $1
	  AND b.status IN ('PENDING_APPROVAL', 'APPROVED')
	  AND b.start_time < $3 AND b.end_time > $2
	ORDER BY b.start_time ASC`, bookingDetailColumns, bookingDetailJoins)

	var bookings []models.BookingDetail
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &bookings, query, teacherID, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("list teacher bookings: %w", err)
	}
	return bookings, nil
}

// ListNonTerminalByDevicesWindow returns non-terminal bookings overlapping
// [from, to) whose committed assignment includes any of the given devices.
func (r *BookingRepository) ListNonTerminalByDevicesWindow(ctx context.Context, deviceIDs []string, from, to time.Time) ([]models.BookingDetail, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT DISTINCT %s %s
	JOIN program_assignments pa ON pa.booking_id = b.id
	JOIN assignment_devices ad ON ad.assignment_id = pa.id
	WHERE ad.device_id = ANY($1)
	  AND b.status IN ('PENDING_APPROVAL', 'APPROVED')
	  AND b.start_time < $3 AND b.end_time > $2
	ORDER BY b.start_time ASC`, bookingDetailColumns, bookingDetailJoins)

	var bookings []models.BookingDetail
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &bookings, query, pq.Array(deviceIDs), from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("list device bookings: %w", err)
	}
	return bookings, nil
}

// List returns bookings matching filters along with total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	base := bookingDetailJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("b.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("b.status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	}
	if !filter.DayStart.IsZero() && !filter.DayEnd.IsZero() {
		conditions = append(conditions, fmt.Sprintf("b.start_time < $%d AND b.end_time > $%d", len(args)+2, len(args)+1))
		args = append(args, filter.DayStart, filter.DayEnd)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY b.start_time %s LIMIT %d OFFSET %d", bookingDetailColumns, base, order, size, offset)
	var bookings []models.BookingDetail
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &bookings, query, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	err = r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &total, countQuery, args...)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID fetches a booking with joined display names.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.BookingDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE b.id = $1", bookingDetailColumns, bookingDetailJoins)
	var booking models.BookingDetail
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &booking, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create inserts a booking guarded against concurrently committed overlaps:
// the row is only written when no non-terminal booking for the same teacher
// overlaps the window at insert time. Returns ErrOverlapRace when the guard
// rejects the write.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, teacher_id, institution_id, program_id, start_time, end_time, status, notes, created_at, updated_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	WHERE NOT EXISTS (
		SELECT 1 FROM bookings
		WHERE teacher_id = $2
		  AND status IN ('PENDING_APPROVAL', 'APPROVED')
		  AND start_time < $6 AND end_time > $5
	)`

	err := r.retry.Do(ctx, func(ctx context.Context) error {
		result, execErr := r.db.ExecContext(ctx, query,
			booking.ID,
			booking.TeacherID,
			booking.InstitutionID,
			booking.ProgramID,
			booking.StartTime,
			booking.EndTime,
			booking.Status,
			booking.Notes,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if execErr != nil {
			return execErr
		}
		rows, execErr := result.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if rows == 0 {
			return ErrOverlapRace
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOverlapRace) {
			return ErrOverlapRace
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// UpdateStatus transitions a booking to the given status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		_, execErr := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}
