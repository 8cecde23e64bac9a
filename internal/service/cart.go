package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/classvr/fleet-api/pkg/errors"
)

// SelectionCart is the transient working set of devices chosen for one
// program-assignment session. Nothing is persisted until the assignment
// workflow commits it.
type SelectionCart struct {
	ID        string
	ProgramID string

	mu  sync.Mutex
	ids map[string]struct{}
}

func newSelectionCart(programID string) *SelectionCart {
	return &SelectionCart{
		ID:        uuid.NewString(),
		ProgramID: programID,
		ids:       make(map[string]struct{}),
	}
}

// Toggle adds the device if absent and removes it if present. Reports
// whether the device is selected afterwards.
func (c *SelectionCart) Toggle(deviceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[deviceID]; ok {
		delete(c.ids, deviceID)
		return false
	}
	c.ids[deviceID] = struct{}{}
	return true
}

// SelectAll replaces the selection with the given ids.
func (c *SelectionCart) SelectAll(deviceIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		c.ids[id] = struct{}{}
	}
}

// Union adds the given ids to the selection. Re-importing the same ids is a
// no-op, which keeps bulk import idempotent.
func (c *SelectionCart) Union(deviceIDs []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, id := range deviceIDs {
		if _, ok := c.ids[id]; !ok {
			c.ids[id] = struct{}{}
			added++
		}
	}
	return added
}

// Clear empties the selection.
func (c *SelectionCart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]struct{})
}

// Size returns the number of selected devices.
func (c *SelectionCart) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// IDs returns the selected device ids, sorted for stable output.
func (c *SelectionCart) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CartStore keeps selection carts for in-progress sessions. Carts expire
// after the TTL; each cart belongs to the single session that created it.
type CartStore struct {
	store *gocache.Cache
}

// NewCartStore constructs a CartStore with the given session TTL.
func NewCartStore(ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CartStore{store: gocache.New(ttl, 2*ttl)}
}

// Create opens a new cart bound to a program.
func (s *CartStore) Create(programID string) *SelectionCart {
	cart := newSelectionCart(programID)
	s.store.SetDefault(cart.ID, cart)
	return cart
}

// Get returns the cart for a session.
func (s *CartStore) Get(cartID string) (*SelectionCart, error) {
	if v, found := s.store.Get(cartID); found {
		if cart, ok := v.(*SelectionCart); ok {
			return cart, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "selection cart not found or expired")
}

// Rebind points the cart at a different program. Changing programs clears
// the selection so a set built against a stale eligibility pool cannot be
// carried over.
func (s *CartStore) Rebind(cartID, programID string) (*SelectionCart, error) {
	cart, err := s.Get(cartID)
	if err != nil {
		return nil, err
	}
	if cart.ProgramID != programID {
		cart.Clear()
		cart.ProgramID = programID
	}
	return cart, nil
}

// Delete removes a cart, typically after commit.
func (s *CartStore) Delete(cartID string) {
	s.store.Delete(cartID)
}
