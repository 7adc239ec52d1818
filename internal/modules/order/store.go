// README: Order store contract plus the in-memory implementation.
package order

import (
	"context"
	"sync"
	"time"

	"foodfast/internal/types"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	BranchID types.ID
	UserID   types.ID
	Status   Status
}

// Store owns order records. UpdateStatus is a compare-and-swap keyed on the
// current status and version; callers must treat a false return as a lost
// race, not an error.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, vehicleID *types.ID) (bool, error)
}

// MemStore keeps orders in process memory behind a single mutex. It is the
// default store when no database is configured and the store used by tests.
type MemStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
	seq    []types.ID
}

func NewMemStore() *MemStore {
	return &MemStore{orders: make(map[types.ID]*Order)}
}

func (s *MemStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneOrder(o)
	s.orders[o.ID] = cp
	s.seq = append(s.seq, o.ID)
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemStore) List(_ context.Context, f Filter) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	// Newest first, same ordering as the SQL store.
	for i := len(s.seq) - 1; i >= 0; i-- {
		o := s.orders[s.seq[i]]
		if f.BranchID != "" && o.BranchID != f.BranchID {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, vehicleID *types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	now := time.Now()
	o.Status = to
	o.StatusVersion++
	o.UpdatedAt = now
	if vehicleID != nil {
		v := *vehicleID
		o.VehicleID = &v
	}
	switch to {
	case StatusPaidWaiting:
		o.Paid = true
		o.PaidAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	}
	return true, nil
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	if o.VehicleID != nil {
		v := *o.VehicleID
		cp.VehicleID = &v
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}
