package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classvr/fleet-api/internal/models"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func bookingDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "teacher_id", "institution_id", "program_id", "start_time", "end_time",
		"status", "notes", "created_at", "updated_at", "institution_name", "program_name",
	})
}

func TestBookingRepositoryListNonTerminalByTeacherWindow(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	rows := bookingDetailRows().
		AddRow("b1", "t1", nil, nil, from.Add(9*time.Hour), from.Add(11*time.Hour),
			"APPROVED", nil, time.Now(), time.Now(), nil, nil)
	mock.ExpectQuery("SELECT .+ FROM bookings b").
		WithArgs("t1", from, to).
		WillReturnRows(rows)

	bookings, err := repo.ListNonTerminalByTeacherWindow(context.Background(), "t1", from, to)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b1", bookings[0].ID)
	assert.Equal(t, models.BookingStatusApproved, bookings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), "t1", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg(),
			models.BookingStatusPendingApproval, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	booking := &models.Booking{
		TeacherID: "t1",
		StartTime: time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC),
		Status:    models.BookingStatusPendingApproval,
	}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateOverlapRace(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	// The conditional insert writes nothing when a competing booking landed
	// after the service-level check.
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(0, 0))

	booking := &models.Booking{
		TeacherID: "t1",
		StartTime: time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC),
		Status:    models.BookingStatusPendingApproval,
	}
	err := repo.Create(context.Background(), booking)
	assert.ErrorIs(t, err, ErrOverlapRace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("b1", models.BookingStatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "b1", models.BookingStatusApproved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryList(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db, nil)

	rows := bookingDetailRows().
		AddRow("b1", "t1", nil, nil, time.Now(), time.Now().Add(time.Hour),
			"PENDING_APPROVAL", nil, time.Now(), time.Now(), nil, nil)
	mock.ExpectQuery("SELECT .+ FROM bookings b").
		WithArgs("t1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{TeacherID: "t1"})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
