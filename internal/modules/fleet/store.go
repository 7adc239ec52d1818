// README: Vehicle store contract plus the in-memory implementation.
package fleet

import (
	"context"
	"sync"
	"time"

	"foodfast/internal/types"
)

// Patch updates individual vehicle fields; nil fields are left alone.
// Patching availability away from delivering clears the assignment so the
// assignment/availability invariant survives fleet-management edits; the
// service rejects patches into delivering, that edge belongs to Claim.
type Patch struct {
	Name         *string
	Model        *string
	Availability *Availability
	ChargeLevel  *int
	BranchID     *types.ID
	Location     *types.Point
}

// Store owns vehicle records. Claim is the single atomic idle→delivering
// step: the branch/idle/charge predicates and the reservation write happen
// under one lock (or one conditional UPDATE), so two concurrent dispatches
// can never reserve the same vehicle.
type Store interface {
	Create(ctx context.Context, v *Vehicle) error
	Get(ctx context.Context, id types.ID) (*Vehicle, error)
	List(ctx context.Context, branchID types.ID) ([]*Vehicle, error)
	Update(ctx context.Context, id types.ID, p Patch) (*Vehicle, error)
	Delete(ctx context.Context, id types.ID) error
	Claim(ctx context.Context, branchID, orderID types.ID, minCharge int) (*Vehicle, error)
	Release(ctx context.Context, id types.ID, chargeCost int) (*Vehicle, error)
}

// MemStore keeps the fleet in process memory behind a single mutex.
type MemStore struct {
	mu       sync.Mutex
	vehicles map[types.ID]*Vehicle
	seq      []types.ID
}

func NewMemStore() *MemStore {
	return &MemStore{vehicles: make(map[types.ID]*Vehicle)}
}

func (s *MemStore) Create(_ context.Context, v *Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = cloneVehicle(v)
	s.seq = append(s.seq, v.ID)
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVehicle(v), nil
}

func (s *MemStore) List(_ context.Context, branchID types.ID) ([]*Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Vehicle
	for _, id := range s.seq {
		v := s.vehicles[id]
		if branchID != "" && v.BranchID != branchID {
			continue
		}
		out = append(out, cloneVehicle(v))
	}
	return out, nil
}

func (s *MemStore) Update(_ context.Context, id types.ID, p Patch) (*Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Model != nil {
		v.Model = *p.Model
	}
	if p.Availability != nil {
		v.Availability = *p.Availability
		if v.Availability != AvailabilityDelivering {
			v.AssignedOrder = nil
		}
	}
	if p.ChargeLevel != nil {
		v.ChargeLevel = clampCharge(*p.ChargeLevel)
	}
	if p.BranchID != nil {
		v.BranchID = *p.BranchID
	}
	if p.Location != nil {
		v.Location = *p.Location
	}
	v.UpdatedAt = time.Now()
	return cloneVehicle(v), nil
}

func (s *MemStore) Delete(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[id]; !ok {
		return ErrNotFound
	}
	delete(s.vehicles, id)
	for i, sid := range s.seq {
		if sid == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemStore) Claim(_ context.Context, branchID, orderID types.ID, minCharge int) (*Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// First match in registry order; no distance ranking.
	for _, id := range s.seq {
		v := s.vehicles[id]
		if v.BranchID != branchID || v.Availability != AvailabilityIdle || v.ChargeLevel <= minCharge {
			continue
		}
		oid := orderID
		v.Availability = AvailabilityDelivering
		v.AssignedOrder = &oid
		v.UpdatedAt = time.Now()
		return cloneVehicle(v), nil
	}
	return nil, ErrNoVehicleAvailable
}

func (s *MemStore) Release(_ context.Context, id types.ID, chargeCost int) (*Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	v.Availability = AvailabilityIdle
	v.AssignedOrder = nil
	v.ChargeLevel = clampCharge(v.ChargeLevel - chargeCost)
	v.UpdatedAt = time.Now()
	return cloneVehicle(v), nil
}

func clampCharge(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

func cloneVehicle(v *Vehicle) *Vehicle {
	cp := *v
	if v.AssignedOrder != nil {
		id := *v.AssignedOrder
		cp.AssignedOrder = &id
	}
	return &cp
}
