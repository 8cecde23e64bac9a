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

func newDeviceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func deviceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "display_number", "disabled", "disable_reason", "health_state", "created_at", "updated_at",
	})
}

func TestDeviceRepositoryList(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db, nil)

	rows := deviceRows().
		AddRow("dev-1", 1, false, nil, "AVAILABLE", time.Now(), time.Now()).
		AddRow("dev-2", 2, true, "cracked lens", "DISABLED", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, display_number, disabled, disable_reason, health_state, created_at, updated_at FROM devices WHERE 1=1 ORDER BY display_number ASC LIMIT 50 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM devices WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	devices, total, err := repo.List(context.Background(), models.DeviceFilter{})
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryListFiltersByHealthState(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db, nil)

	mock.ExpectQuery("SELECT .+ FROM devices WHERE 1=1 AND health_state = ").
		WithArgs("MAINTENANCE").
		WillReturnRows(deviceRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM devices WHERE 1=1 AND health_state = $1")).
		WithArgs("MAINTENANCE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	devices, total, err := repo.List(context.Background(), models.DeviceFilter{HealthState: "maintenance"})
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db, nil)

	mock.ExpectExec("INSERT INTO devices").
		WithArgs(sqlmock.AnyArg(), 42, false, nil, models.DeviceHealthAvailable, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	device := &models.Device{DisplayNumber: 42, HealthState: models.DeviceHealthAvailable}
	require.NoError(t, repo.Create(context.Background(), device))
	assert.NotEmpty(t, device.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepositoryUpdateHealth(t *testing.T) {
	db, mock, cleanup := newDeviceRepoMock(t)
	defer cleanup()
	repo := NewDeviceRepository(db, nil)

	reason := "firmware update"
	mock.ExpectExec("UPDATE devices SET").
		WithArgs("dev-1", models.DeviceHealthMaintenance, true, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateHealth(context.Background(), "dev-1", models.DeviceHealthMaintenance, true, &reason))
	assert.NoError(t, mock.ExpectationsWereMet())
}
