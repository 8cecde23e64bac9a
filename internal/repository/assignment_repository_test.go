package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classvr/fleet-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryCreateTransactional(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO program_assignments").
		WithArgs(sqlmock.AnyArg(), "prog-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO assignment_devices").
		WithArgs(sqlmock.AnyArg(), "dev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO assignment_devices").
		WithArgs(sqlmock.AnyArg(), "dev-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assignment := &models.ProgramAssignment{
		ProgramID: "prog-1",
		DeviceIDs: []string{"dev-1", "dev-2"},
	}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateRollsBackOnDeviceError(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO program_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO assignment_devices").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	assignment := &models.ProgramAssignment{
		ProgramID: "prog-1",
		DeviceIDs: []string{"dev-1"},
	}
	err := repo.Create(context.Background(), assignment)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, program_id, booking_id, created_at FROM program_assignments WHERE id = $1")).
		WithArgs("asn-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "program_id", "booking_id", "created_at"}).
			AddRow("asn-1", "prog-1", nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT device_id FROM assignment_devices WHERE assignment_id = $1 ORDER BY device_id")).
		WithArgs("asn-1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("dev-1").AddRow("dev-2"))

	assignment, err := repo.FindByID(context.Background(), "asn-1")
	require.NoError(t, err)
	assert.Equal(t, "prog-1", assignment.ProgramID)
	assert.Equal(t, []string{"dev-1", "dev-2"}, assignment.DeviceIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
