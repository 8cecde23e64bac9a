package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/classvr/fleet-api/internal/models"
	"github.com/classvr/fleet-api/internal/repository"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
)

type eligibilityProgramReader interface {
	FindByID(ctx context.Context, id string) (*models.ProgramDetail, error)
}

type eligibilityDeviceReader interface {
	ListAll(ctx context.Context) ([]models.Device, error)
}

type eligibilityLinkReader interface {
	ListAll(ctx context.Context) ([]models.DeviceContentLink, error)
}

type eligibilitySnapshotStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EligibilityCache is the in-process cache of eligible-device lists, keyed by
// program id. Invalidation triggers: program change (InvalidateProgram),
// explicit refresh on resolve, and TTL expiry.
type EligibilityCache struct {
	store *gocache.Cache
}

// NewEligibilityCache constructs a cache with the given TTL.
func NewEligibilityCache(ttl time.Duration) *EligibilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EligibilityCache{store: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached eligible list for a program.
func (c *EligibilityCache) Get(programID string) ([]models.Device, bool) {
	if c == nil {
		return nil, false
	}
	if v, found := c.store.Get(programID); found {
		if devices, ok := v.([]models.Device); ok {
			return devices, true
		}
	}
	return nil, false
}

// Set stores the eligible list for a program.
func (c *EligibilityCache) Set(programID string, devices []models.Device) {
	if c == nil {
		return
	}
	c.store.SetDefault(programID, devices)
}

// InvalidateProgram drops the cached list for one program.
func (c *EligibilityCache) InvalidateProgram(programID string) {
	if c == nil {
		return
	}
	c.store.Delete(programID)
}

// Flush drops every cached list.
func (c *EligibilityCache) Flush() {
	if c == nil {
		return
	}
	c.store.Flush()
}

// EligibilityService computes which devices qualify for a program.
type EligibilityService struct {
	programRepo eligibilityProgramReader
	deviceRepo  eligibilityDeviceReader
	linkRepo    eligibilityLinkReader
	cache       *EligibilityCache
	snapshots   eligibilitySnapshotStore
	snapshotTTL time.Duration
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewEligibilityService constructs an EligibilityService. The snapshot store
// is optional; pass nil to keep caching purely in-process.
func NewEligibilityService(programRepo eligibilityProgramReader, deviceRepo eligibilityDeviceReader, linkRepo eligibilityLinkReader, cache *EligibilityCache, snapshots eligibilitySnapshotStore, snapshotTTL time.Duration, logger *zap.Logger, metrics *MetricsService) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		programRepo: programRepo,
		deviceRepo:  deviceRepo,
		linkRepo:    linkRepo,
		cache:       cache,
		snapshots:   snapshots,
		snapshotTTL: snapshotTTL,
		logger:      logger,
		metrics:     metrics,
	}
}

// Resolve returns the devices qualified for the program, sorted ascending by
// display number. refresh bypasses both cache layers.
func (s *EligibilityService) Resolve(ctx context.Context, programID string, refresh bool) ([]models.Device, error) {
	if programID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}

	if !refresh {
		if devices, found := s.cache.Get(programID); found {
			s.metrics.RecordEligibilityLookup(true)
			return devices, nil
		}
		if s.snapshots != nil {
			var devices []models.Device
			err := s.snapshots.Get(ctx, repository.EligibilityKey(programID), &devices)
			if err == nil {
				s.metrics.RecordEligibilityLookup(true)
				s.cache.Set(programID, devices)
				return devices, nil
			}
			if !errors.Is(err, appErrors.ErrCacheMiss) {
				s.logger.Warn("eligibility snapshot read failed", zap.String("program_id", programID), zap.Error(err))
			}
		}
	}
	s.metrics.RecordEligibilityLookup(false)

	program, err := s.programRepo.FindByID(ctx, programID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	devices, err := s.deviceRepo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list devices")
	}

	links, err := s.linkRepo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content links")
	}

	eligible := resolveEligible(program, devices, links)

	s.cache.Set(programID, eligible)
	if s.snapshots != nil {
		if err := s.snapshots.Set(ctx, repository.EligibilityKey(programID), eligible, s.snapshotTTL); err != nil {
			s.logger.Warn("eligibility snapshot write failed", zap.String("program_id", programID), zap.Error(err))
		}
	}

	return eligible, nil
}

// Invalidate drops cached results for a program, on both cache layers. Called
// when the governing program selection changes.
func (s *EligibilityService) Invalidate(ctx context.Context, programID string) {
	s.cache.InvalidateProgram(programID)
	if s.snapshots != nil {
		if err := s.snapshots.Delete(ctx, repository.EligibilityKey(programID)); err != nil {
			s.logger.Warn("eligibility snapshot delete failed", zap.String("program_id", programID), zap.Error(err))
		}
	}
}

// resolveEligible applies the permissive matching rule: a device qualifies
// when it is enabled and either the program requires nothing or at least one
// required content unit is installed on it. Partial coverage is enough; full
// coverage would leave multi-content programs with no single qualifying
// device, so final correctness stays with the human operator.
func resolveEligible(program *models.ProgramDetail, devices []models.Device, links []models.DeviceContentLink) []models.Device {
	required := program.RequiredContentSet()

	installed := make(map[string]map[string]struct{}, len(devices))
	for _, link := range links {
		set, ok := installed[link.DeviceID]
		if !ok {
			set = make(map[string]struct{})
			installed[link.DeviceID] = set
		}
		set[link.ContentUnitID] = struct{}{}
	}

	eligible := make([]models.Device, 0, len(devices))
	for _, device := range devices {
		if device.Disabled {
			continue
		}
		if len(required) == 0 || intersects(installed[device.ID], required) {
			eligible = append(eligible, device)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].DisplayNumber < eligible[j].DisplayNumber
	})
	return eligible
}

func intersects(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	// iterate the smaller set
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
