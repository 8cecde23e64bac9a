package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classvr/fleet-api/internal/models"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
)

type mockAssignmentRepo struct {
	items   map[string]*models.ProgramAssignment
	created []*models.ProgramAssignment
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.ProgramAssignment) error {
	assignment.ID = "asn-1"
	assignment.CreatedAt = time.Now()
	m.created = append(m.created, assignment)
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.ProgramAssignment, error) {
	if a, ok := m.items[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListByProgram(ctx context.Context, programID string) ([]models.ProgramAssignment, error) {
	var out []models.ProgramAssignment
	for _, a := range m.items {
		if a.ProgramID == programID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type mockEligibilityResolver struct {
	pools       map[string][]models.Device
	invalidated []string
}

func (m *mockEligibilityResolver) Resolve(ctx context.Context, programID string, refresh bool) ([]models.Device, error) {
	if pool, ok := m.pools[programID]; ok {
		return pool, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
}

func (m *mockEligibilityResolver) Invalidate(ctx context.Context, programID string) {
	m.invalidated = append(m.invalidated, programID)
}

func newAssignmentFixture() (*AssignmentService, *mockAssignmentRepo, *mockEligibilityResolver) {
	repo := &mockAssignmentRepo{items: map[string]*models.ProgramAssignment{}}
	resolver := &mockEligibilityResolver{pools: map[string][]models.Device{
		"prog-1": {
			{ID: "dev-100", DisplayNumber: 100},
			{ID: "dev-205", DisplayNumber: 205},
		},
		"prog-2": {
			{ID: "dev-300", DisplayNumber: 300},
		},
	}}
	svc := NewAssignmentService(repo, resolver, NewCartStore(time.Minute), nil, nil, nil, nil)
	return svc, repo, resolver
}

func TestAssignmentOpenCartValidatesProgram(t *testing.T) {
	svc, _, _ := newAssignmentFixture()

	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, "prog-1", cart.ProgramID)

	_, err = svc.OpenCart(context.Background(), "missing")
	assert.Error(t, err)

	_, err = svc.OpenCart(context.Background(), "")
	assert.Error(t, err)
}

func TestAssignmentBulkImportIdempotent(t *testing.T) {
	svc, _, _ := newAssignmentFixture()
	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)

	result, cart, err := svc.BulkImport(context.Background(), cart.ID, BulkImportRequest{Text: "100, 205, 999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-100", "dev-205"}, result.MatchedIDs)
	assert.Equal(t, []int{999}, result.UnmatchedNumbers)
	assert.Equal(t, 2, cart.Size())

	// Pasting the same text again must not grow the selection.
	result, cart, err = svc.BulkImport(context.Background(), cart.ID, BulkImportRequest{Text: "100, 205, 999"})
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Size())
	assert.Equal(t, []int{999}, result.UnmatchedNumbers)
}

func TestAssignmentSelectAllEligible(t *testing.T) {
	svc, _, _ := newAssignmentFixture()
	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)

	cart, err = svc.SelectAllEligible(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-100", "dev-205"}, cart.IDs())
}

func TestAssignmentRebindInvalidatesOldProgram(t *testing.T) {
	svc, _, resolver := newAssignmentFixture()
	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)
	cart.Union([]string{"dev-100"})

	cart, err = svc.Rebind(context.Background(), cart.ID, "prog-2")
	require.NoError(t, err)
	assert.Equal(t, "prog-2", cart.ProgramID)
	assert.Equal(t, 0, cart.Size())
	assert.Equal(t, []string{"prog-1"}, resolver.invalidated)
}

func TestAssignmentCommit(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)
	_, _, err = svc.BulkImport(context.Background(), cart.ID, BulkImportRequest{Text: "100 205"})
	require.NoError(t, err)

	assignment, err := svc.Commit(context.Background(), cart.ID, CommitAssignmentRequest{})
	require.NoError(t, err)
	assert.Equal(t, "prog-1", assignment.ProgramID)
	assert.Equal(t, []string{"dev-100", "dev-205"}, assignment.DeviceIDs)
	require.Len(t, repo.created, 1)

	// The session is closed after commit.
	_, err = svc.GetCart(cart.ID)
	assert.Error(t, err)
}

func TestAssignmentCommitEmptyCartRejected(t *testing.T) {
	svc, repo, _ := newAssignmentFixture()
	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)

	_, err = svc.Commit(context.Background(), cart.ID, CommitAssignmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)

	// The cart survives a rejected commit.
	_, err = svc.GetCart(cart.ID)
	assert.NoError(t, err)
}

func TestAssignmentToggle(t *testing.T) {
	svc, _, _ := newAssignmentFixture()
	cart, err := svc.OpenCart(context.Background(), "prog-1")
	require.NoError(t, err)

	cart, err = svc.Toggle(cart.ID, "dev-100")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-100"}, cart.IDs())

	cart, err = svc.Toggle(cart.ID, "dev-100")
	require.NoError(t, err)
	assert.Equal(t, 0, cart.Size())

	_, err = svc.Toggle(cart.ID, "")
	assert.Error(t, err)
}
