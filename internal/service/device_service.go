package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classvr/fleet-api/internal/models"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
)

type deviceRepository interface {
	List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, int, error)
	FindByID(ctx context.Context, id string) (*models.Device, error)
	Create(ctx context.Context, device *models.Device) error
	UpdateHealth(ctx context.Context, id string, state models.DeviceHealthState, disabled bool, reason *string) error
}

type deviceLinkRepository interface {
	ListByDevice(ctx context.Context, deviceID string) ([]models.DeviceContentLink, error)
	Create(ctx context.Context, link *models.DeviceContentLink) error
	Delete(ctx context.Context, deviceID, contentUnitID string) error
}

// CreateDeviceRequest registers a headset in the fleet.
type CreateDeviceRequest struct {
	DisplayNumber int `json:"display_number" validate:"required,min=1"`
}

// UpdateDeviceHealthRequest changes a device's health state.
type UpdateDeviceHealthRequest struct {
	HealthState   string  `json:"health_state" validate:"required,healthstate"`
	DisableReason *string `json:"disable_reason"`
}

// DeviceService exposes the inventory surface of the fleet.
type DeviceService struct {
	repo      deviceRepository
	linkRepo  deviceLinkRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDeviceService constructs a DeviceService.
func NewDeviceService(repo deviceRepository, linkRepo deviceLinkRepository, validate *validator.Validate, logger *zap.Logger) *DeviceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DeviceService{repo: repo, linkRepo: linkRepo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("healthstate", func(fl validator.FieldLevel) bool {
		switch models.DeviceHealthState(strings.ToUpper(fl.Field().String())) {
		case models.DeviceHealthAvailable, models.DeviceHealthMaintenance, models.DeviceHealthDisabled:
			return true
		default:
			return false
		}
	})
	return svc
}

// List returns devices plus pagination data.
func (s *DeviceService) List(ctx context.Context, filter models.DeviceFilter) ([]models.Device, *models.Pagination, error) {
	devices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list devices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return devices, pagination, nil
}

// Get returns a device by id.
func (s *DeviceService) Get(ctx context.Context, id string) (*models.Device, error) {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "device not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load device")
	}
	return device, nil
}

// Create registers a new headset.
func (s *DeviceService) Create(ctx context.Context, req CreateDeviceRequest) (*models.Device, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid device payload")
	}

	device := &models.Device{
		DisplayNumber: req.DisplayNumber,
		HealthState:   models.DeviceHealthAvailable,
	}
	if err := s.repo.Create(ctx, device); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create device")
	}
	return device, nil
}

// UpdateHealth transitions the health state of a device. DISABLED and
// MAINTENANCE both take the device out of the eligible pool.
func (s *DeviceService) UpdateHealth(ctx context.Context, id string, req UpdateDeviceHealthRequest) (*models.Device, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid health payload")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	state := models.DeviceHealthState(strings.ToUpper(req.HealthState))
	disabled := state != models.DeviceHealthAvailable
	reason := req.DisableReason
	if !disabled {
		reason = nil
	}

	if err := s.repo.UpdateHealth(ctx, id, state, disabled, reason); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update device health")
	}

	s.logger.Info("device health updated", zap.String("device_id", id), zap.String("state", string(state)))
	return s.Get(ctx, id)
}

// ListContent returns the content units installed on a device.
func (s *DeviceService) ListContent(ctx context.Context, deviceID string) ([]models.DeviceContentLink, error) {
	if _, err := s.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	links, err := s.linkRepo.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list device content")
	}
	return links, nil
}

// InstallContent records a content unit as installed on a device.
func (s *DeviceService) InstallContent(ctx context.Context, deviceID, contentUnitID string) (*models.DeviceContentLink, error) {
	if contentUnitID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content unit id is required")
	}
	if _, err := s.Get(ctx, deviceID); err != nil {
		return nil, err
	}

	link := &models.DeviceContentLink{DeviceID: deviceID, ContentUnitID: contentUnitID}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to install content")
	}
	return link, nil
}

// UninstallContent removes an installation link.
func (s *DeviceService) UninstallContent(ctx context.Context, deviceID, contentUnitID string) error {
	if _, err := s.Get(ctx, deviceID); err != nil {
		return err
	}
	if err := s.linkRepo.Delete(ctx, deviceID, contentUnitID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to uninstall content")
	}
	return nil
}
