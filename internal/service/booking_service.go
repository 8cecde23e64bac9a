package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classvr/fleet-api/internal/models"
	"github.com/classvr/fleet-api/internal/repository"
	"github.com/classvr/fleet-api/pkg/config"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
	"github.com/classvr/fleet-api/pkg/notifier"
)

type bookingRepository interface {
	ListNonTerminalByTeacherWindow(ctx context.Context, teacherID string, from, to time.Time) ([]models.BookingDetail, error)
	ListNonTerminalByDevicesWindow(ctx context.Context, deviceIDs []string, from, to time.Time) ([]models.BookingDetail, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.BookingDetail, error)
	Create(ctx context.Context, booking *models.Booking) error
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
}

type bookingTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ProposeBookingRequest describes payload for proposing a booking.
type ProposeBookingRequest struct {
	TeacherID     string    `json:"teacher_id" validate:"required"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required"`
	InstitutionID *string   `json:"institution_id"`
	ProgramID     *string   `json:"program_id"`
	Notes         *string   `json:"notes"`
	DeviceIDs     []string  `json:"device_ids"`
}

// BookingService owns the creation path of the booking state machine and the
// conflict rule both it and the preview query share.
type BookingService struct {
	repo        bookingRepository
	teacherRepo bookingTeacherReader
	scheduling  config.SchedulingConfig
	validator   *validator.Validate
	logger      *zap.Logger
	notify      notifier.Notifier
	metrics     *MetricsService
}

// NewBookingService constructs a BookingService.
func NewBookingService(repo bookingRepository, teacherRepo bookingTeacherReader, scheduling config.SchedulingConfig, validate *validator.Validate, logger *zap.Logger, notify notifier.Notifier, metrics *MetricsService) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &BookingService{
		repo:        repo,
		teacherRepo: teacherRepo,
		scheduling:  scheduling,
		validator:   validate,
		logger:      logger,
		notify:      notify,
		metrics:     metrics,
	}
}

// List returns bookings with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, *models.Pagination, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
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
	return bookings, pagination, nil
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*models.BookingDetail, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// Propose validates the requested window, runs conflict detection and
// persists a new booking in PENDING_APPROVAL. No partial state is written on
// failure.
func (s *BookingService) Propose(ctx context.Context, req ProposeBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	teacher, err := s.teacherRepo.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}

	if conflictErr := s.checkTeacherConflict(ctx, req.TeacherID, req.StartTime, req.EndTime); conflictErr != nil {
		return nil, conflictErr
	}

	if s.scheduling.DeviceConflictCheck && len(req.DeviceIDs) > 0 {
		if conflictErr := s.checkDeviceConflict(ctx, req.DeviceIDs, req.StartTime, req.EndTime); conflictErr != nil {
			return nil, conflictErr
		}
	}

	booking := &models.Booking{
		TeacherID:     req.TeacherID,
		InstitutionID: req.InstitutionID,
		ProgramID:     req.ProgramID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        models.BookingStatusPendingApproval,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrOverlapRace) {
			s.metrics.RecordConflict("TEACHER")
			return nil, s.wrapConflict("teacher already booked in this window", models.BookingConflict{
				TeacherID: req.TeacherID,
				StartTime: req.StartTime,
				EndTime:   req.EndTime,
				Dimension: "TEACHER",
			})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.metrics.RecordBooking(string(booking.Status))
	s.notify.Notify(notifier.LevelInfo, fmt.Sprintf("booking proposed for %s", teacher.FullName))
	s.logger.Info("booking proposed",
		zap.String("booking_id", booking.ID),
		zap.String("teacher_id", booking.TeacherID),
		zap.Time("start", booking.StartTime),
		zap.Time("end", booking.EndTime),
	)
	return booking, nil
}

// CheckConflictPreview runs the exact conflict rule Propose uses, without
// writing anything. A nil result means the window is free.
func (s *BookingService) CheckConflictPreview(ctx context.Context, teacherID string, start, end time.Time) (*models.BookingConflict, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	err := s.checkTeacherConflict(ctx, teacherID, start, end)
	if err == nil {
		return nil, nil
	}
	var domainErr *models.BookingConflictError
	if errors.As(err, &domainErr) {
		conflict := domainErr.Conflict
		return &conflict, nil
	}
	return nil, err
}

// Approve moves a pending booking to APPROVED.
func (s *BookingService) Approve(ctx context.Context, id string) (*models.BookingDetail, error) {
	return s.transition(ctx, id, models.BookingStatusApproved)
}

// Reject moves a pending booking to REJECTED.
func (s *BookingService) Reject(ctx context.Context, id string) (*models.BookingDetail, error) {
	return s.transition(ctx, id, models.BookingStatusRejected)
}

// Cancel moves an approved booking to CANCELLED.
func (s *BookingService) Cancel(ctx context.Context, id string) (*models.BookingDetail, error) {
	return s.transition(ctx, id, models.BookingStatusCancelled)
}

// Complete moves an approved booking to DONE.
func (s *BookingService) Complete(ctx context.Context, id string) (*models.BookingDetail, error) {
	return s.transition(ctx, id, models.BookingStatusDone)
}

func (s *BookingService) transition(ctx context.Context, id string, next models.BookingStatus) (*models.BookingDetail, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	if !booking.Status.CanTransition(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move booking from %s to %s", booking.Status, next))
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}

	booking.Status = next
	booking.UpdatedAt = time.Now().UTC()
	s.metrics.RecordBooking(string(next))
	s.notify.Notify(notifier.LevelInfo, fmt.Sprintf("booking %s is now %s", id, next))
	return booking, nil
}

func (s *BookingService) checkTeacherConflict(ctx context.Context, teacherID string, start, end time.Time) error {
	from := startOfDay(start)
	to := startOfDay(end).AddDate(0, 0, 1)

	existing, err := s.repo.ListNonTerminalByTeacherWindow(ctx, teacherID, from, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
	}

	intervals := make([]Interval, 0, len(existing))
	for _, b := range existing {
		intervals = append(intervals, Interval{Start: b.StartTime, End: b.EndTime, ResourceID: b.TeacherID})
	}

	idx, found := findConflict(intervals, Interval{Start: start, End: end, ResourceID: teacherID})
	if !found {
		return nil
	}

	blocking := existing[idx]
	s.metrics.RecordConflict("TEACHER")
	return s.wrapConflict("teacher already booked in this window", conflictFromDetail(blocking, "TEACHER"))
}

func (s *BookingService) checkDeviceConflict(ctx context.Context, deviceIDs []string, start, end time.Time) error {
	from := startOfDay(start)
	to := startOfDay(end).AddDate(0, 0, 1)

	existing, err := s.repo.ListNonTerminalByDevicesWindow(ctx, deviceIDs, from, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check device conflicts")
	}

	for _, b := range existing {
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			s.metrics.RecordConflict("DEVICE")
			return s.wrapConflict("device already booked in this window", conflictFromDetail(b, "DEVICE"))
		}
	}
	return nil
}

func (s *BookingService) wrapConflict(message string, conflict models.BookingConflict) error {
	domainErr := &models.BookingConflictError{Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("booking conflict: %s", message))
}

func conflictFromDetail(b models.BookingDetail, dimension string) models.BookingConflict {
	conflict := models.BookingConflict{
		BookingID: b.ID,
		TeacherID: b.TeacherID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Dimension: dimension,
	}
	if b.InstitutionName != nil {
		conflict.InstitutionName = *b.InstitutionName
	}
	if b.ProgramName != nil {
		conflict.ProgramName = *b.ProgramName
	}
	return conflict
}

// validateWindow rejects malformed windows before any store access.
// Zero-duration windows are invalid input, not a non-conflict.
func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start and end times are required")
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start time must precede end time")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
