package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classvr/fleet-api/internal/models"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
	"github.com/classvr/fleet-api/pkg/notifier"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.ProgramAssignment) error
	FindByID(ctx context.Context, id string) (*models.ProgramAssignment, error)
	ListByProgram(ctx context.Context, programID string) ([]models.ProgramAssignment, error)
}

type eligibilityResolver interface {
	Resolve(ctx context.Context, programID string, refresh bool) ([]models.Device, error)
	Invalidate(ctx context.Context, programID string)
}

// BulkImportRequest carries free-form pasted text of device numbers.
type BulkImportRequest struct {
	Text string `json:"text" validate:"required"`
}

// CommitAssignmentRequest finalizes a selection cart.
type CommitAssignmentRequest struct {
	BookingID *string `json:"booking_id"`
}

// AssignmentService drives the device-selection workflow: opening a cart for
// a program, mutating it, bulk-importing pasted numbers and committing the
// result as a program assignment.
type AssignmentService struct {
	repo        assignmentRepository
	eligibility eligibilityResolver
	carts       *CartStore
	validator   *validator.Validate
	logger      *zap.Logger
	notify      notifier.Notifier
	metrics     *MetricsService
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, eligibility eligibilityResolver, carts *CartStore, validate *validator.Validate, logger *zap.Logger, notify notifier.Notifier, metrics *MetricsService) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &AssignmentService{
		repo:        repo,
		eligibility: eligibility,
		carts:       carts,
		validator:   validate,
		logger:      logger,
		notify:      notify,
		metrics:     metrics,
	}
}

// OpenCart starts a selection session for a program. Resolving eligibility up
// front both validates the program id and warms the cache the session will
// keep hitting.
func (s *AssignmentService) OpenCart(ctx context.Context, programID string) (*SelectionCart, error) {
	if programID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}
	if _, err := s.eligibility.Resolve(ctx, programID, false); err != nil {
		return nil, err
	}
	return s.carts.Create(programID), nil
}

// GetCart returns an open cart.
func (s *AssignmentService) GetCart(cartID string) (*SelectionCart, error) {
	return s.carts.Get(cartID)
}

// Rebind switches the cart to another program, clearing the selection when
// the program actually changes, and invalidates the old program's cached
// eligibility.
func (s *AssignmentService) Rebind(ctx context.Context, cartID, programID string) (*SelectionCart, error) {
	if programID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return nil, err
	}
	previous := cart.ProgramID
	cart, err = s.carts.Rebind(cartID, programID)
	if err != nil {
		return nil, err
	}
	if previous != programID {
		s.eligibility.Invalidate(ctx, previous)
	}
	return cart, nil
}

// Toggle flips one device in the cart.
func (s *AssignmentService) Toggle(cartID, deviceID string) (*SelectionCart, error) {
	if deviceID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "device id is required")
	}
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return nil, err
	}
	cart.Toggle(deviceID)
	return cart, nil
}

// SelectAllEligible fills the cart with every device currently eligible for
// its program.
func (s *AssignmentService) SelectAllEligible(ctx context.Context, cartID string) (*SelectionCart, error) {
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.eligibility.Resolve(ctx, cart.ProgramID, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(eligible))
	for _, device := range eligible {
		ids = append(ids, device.ID)
	}
	cart.SelectAll(ids)
	return cart, nil
}

// ClearCart empties the cart.
func (s *AssignmentService) ClearCart(cartID string) (*SelectionCart, error) {
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return nil, err
	}
	cart.Clear()
	return cart, nil
}

// BulkImport parses pasted device numbers, matches them against the cart
// program's eligible pool and unions the hits into the selection. Running
// the same text twice leaves the cart unchanged.
func (s *AssignmentService) BulkImport(ctx context.Context, cartID string, req BulkImportRequest) (*BulkMatchResult, *SelectionCart, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk import payload")
	}
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return nil, nil, err
	}

	eligible, err := s.eligibility.Resolve(ctx, cart.ProgramID, false)
	if err != nil {
		return nil, nil, err
	}

	result := MatchTokens(req.Text, eligible)
	cart.Union(result.MatchedIDs)
	s.metrics.RecordBulkUnmatched(len(result.UnmatchedNumbers))

	if len(result.UnmatchedNumbers) > 0 {
		s.notify.Notify(notifier.LevelWarning, fmt.Sprintf("%d pasted device numbers did not match the eligible pool", len(result.UnmatchedNumbers)))
	}
	return &result, cart, nil
}

// Commit persists the cart as a program assignment and closes the session.
// The write is transactional: either the assignment and all its device rows
// land, or nothing does.
func (s *AssignmentService) Commit(ctx context.Context, cartID string, req CommitAssignmentRequest) (*models.ProgramAssignment, error) {
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return nil, err
	}
	if cart.Size() == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selection cart is empty")
	}

	assignment := &models.ProgramAssignment{
		ProgramID: cart.ProgramID,
		BookingID: req.BookingID,
		DeviceIDs: cart.IDs(),
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.carts.Delete(cartID)
	s.notify.Notify(notifier.LevelSuccess, fmt.Sprintf("%d devices assigned to program", len(assignment.DeviceIDs)))
	s.logger.Info("assignment committed",
		zap.String("assignment_id", assignment.ID),
		zap.String("program_id", assignment.ProgramID),
		zap.Int("devices", len(assignment.DeviceIDs)),
	)
	return assignment, nil
}

// Get returns an assignment by id.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.ProgramAssignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// ListByProgram returns assignments recorded for a program.
func (s *AssignmentService) ListByProgram(ctx context.Context, programID string) ([]models.ProgramAssignment, error) {
	assignments, err := s.repo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}
