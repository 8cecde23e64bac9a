package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classvr/fleet-api/internal/models"
)

type mockProgramRepo struct {
	programs map[string]*models.ProgramDetail
	calls    int
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	m.calls++
	if program, ok := m.programs[id]; ok {
		return program, nil
	}
	return nil, sql.ErrNoRows
}

type mockDeviceReader struct {
	devices []models.Device
}

func (m *mockDeviceReader) ListAll(ctx context.Context) ([]models.Device, error) {
	return m.devices, nil
}

type mockLinkReader struct {
	links []models.DeviceContentLink
}

func (m *mockLinkReader) ListAll(ctx context.Context) ([]models.DeviceContentLink, error) {
	return m.links, nil
}

func programWithRefs(id string, units ...string) *models.ProgramDetail {
	detail := &models.ProgramDetail{}
	detail.ID = id
	detail.Name = "Program " + id
	for _, unit := range units {
		detail.ContentRefs = append(detail.ContentRefs, models.ProgramContentRef{
			ProgramID:     id,
			ContentUnitID: unit,
			Source:        models.ProgramRefSessionStep,
		})
	}
	return detail
}

func TestResolveEligiblePermissiveMatch(t *testing.T) {
	program := programWithRefs("prog-1", "content-a", "content-b")
	devices := []models.Device{
		{ID: "dev-1", DisplayNumber: 1},
		{ID: "dev-2", DisplayNumber: 2},
		{ID: "dev-3", DisplayNumber: 3},
	}
	links := []models.DeviceContentLink{
		{DeviceID: "dev-1", ContentUnitID: "content-a"},
		{DeviceID: "dev-2", ContentUnitID: "content-c"},
		{DeviceID: "dev-3", ContentUnitID: "content-a"},
		{DeviceID: "dev-3", ContentUnitID: "content-b"},
	}

	eligible := resolveEligible(program, devices, links)

	// One matching unit is enough; dev-2 has none of the required set.
	require.Len(t, eligible, 2)
	assert.Equal(t, "dev-1", eligible[0].ID)
	assert.Equal(t, "dev-3", eligible[1].ID)
}

func TestResolveEligibleEmptyRequirementMatchesAll(t *testing.T) {
	program := programWithRefs("prog-1")
	devices := []models.Device{
		{ID: "dev-1", DisplayNumber: 1},
		{ID: "dev-2", DisplayNumber: 2},
	}

	eligible := resolveEligible(program, devices, nil)
	assert.Len(t, eligible, 2)
}

func TestResolveEligibleSkipsDisabledDevices(t *testing.T) {
	program := programWithRefs("prog-1", "content-a")
	devices := []models.Device{
		{ID: "dev-1", DisplayNumber: 1},
		{ID: "dev-2", DisplayNumber: 2, Disabled: true, HealthState: models.DeviceHealthMaintenance},
	}
	links := []models.DeviceContentLink{
		{DeviceID: "dev-1", ContentUnitID: "content-a"},
		{DeviceID: "dev-2", ContentUnitID: "content-a"},
	}

	eligible := resolveEligible(program, devices, links)
	require.Len(t, eligible, 1)
	assert.Equal(t, "dev-1", eligible[0].ID)
}

func TestResolveEligibleSortsByDisplayNumber(t *testing.T) {
	program := programWithRefs("prog-1", "content-a")
	devices := []models.Device{
		{ID: "dev-30", DisplayNumber: 30},
		{ID: "dev-2", DisplayNumber: 2},
		{ID: "dev-100", DisplayNumber: 100},
	}
	links := []models.DeviceContentLink{
		{DeviceID: "dev-30", ContentUnitID: "content-a"},
		{DeviceID: "dev-2", ContentUnitID: "content-a"},
		{DeviceID: "dev-100", ContentUnitID: "content-a"},
	}

	eligible := resolveEligible(program, devices, links)
	require.Len(t, eligible, 3)
	assert.Equal(t, []int{2, 30, 100}, []int{
		eligible[0].DisplayNumber,
		eligible[1].DisplayNumber,
		eligible[2].DisplayNumber,
	})
}

func TestResolveEligibleMonotonic(t *testing.T) {
	// Installing more content never shrinks the eligible pool.
	program := programWithRefs("prog-1", "content-a", "content-b")
	devices := []models.Device{{ID: "dev-1", DisplayNumber: 1}}
	links := []models.DeviceContentLink{
		{DeviceID: "dev-1", ContentUnitID: "content-a"},
	}

	before := resolveEligible(program, devices, links)
	links = append(links, models.DeviceContentLink{DeviceID: "dev-1", ContentUnitID: "content-b"})
	after := resolveEligible(program, devices, links)

	assert.Len(t, before, 1)
	assert.Len(t, after, 1)
}

func TestEligibilityServiceResolveCaches(t *testing.T) {
	programRepo := &mockProgramRepo{programs: map[string]*models.ProgramDetail{
		"prog-1": programWithRefs("prog-1", "content-a"),
	}}
	deviceRepo := &mockDeviceReader{devices: []models.Device{{ID: "dev-1", DisplayNumber: 1}}}
	linkRepo := &mockLinkReader{links: []models.DeviceContentLink{{DeviceID: "dev-1", ContentUnitID: "content-a"}}}

	svc := NewEligibilityService(programRepo, deviceRepo, linkRepo, NewEligibilityCache(time.Minute), nil, 0, nil, nil)

	first, err := svc.Resolve(context.Background(), "prog-1", false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, programRepo.calls)

	second, err := svc.Resolve(context.Background(), "prog-1", false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, programRepo.calls, "second lookup must be served from cache")

	_, err = svc.Resolve(context.Background(), "prog-1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, programRepo.calls, "refresh must bypass the cache")
}

func TestEligibilityServiceResolveUnknownProgram(t *testing.T) {
	svc := NewEligibilityService(&mockProgramRepo{}, &mockDeviceReader{}, &mockLinkReader{}, NewEligibilityCache(time.Minute), nil, 0, nil, nil)

	_, err := svc.Resolve(context.Background(), "missing", false)
	assert.Error(t, err)
}

func TestEligibilityServiceInvalidate(t *testing.T) {
	programRepo := &mockProgramRepo{programs: map[string]*models.ProgramDetail{
		"prog-1": programWithRefs("prog-1", "content-a"),
	}}
	deviceRepo := &mockDeviceReader{devices: []models.Device{{ID: "dev-1", DisplayNumber: 1}}}
	linkRepo := &mockLinkReader{links: []models.DeviceContentLink{{DeviceID: "dev-1", ContentUnitID: "content-a"}}}

	svc := NewEligibilityService(programRepo, deviceRepo, linkRepo, NewEligibilityCache(time.Minute), nil, 0, nil, nil)

	_, err := svc.Resolve(context.Background(), "prog-1", false)
	require.NoError(t, err)

	svc.Invalidate(context.Background(), "prog-1")

	_, err = svc.Resolve(context.Background(), "prog-1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, programRepo.calls)
}
