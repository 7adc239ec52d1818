// README: Vehicle registry service; every mutation is fanned out to the fleet dashboard.
package fleet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"foodfast/internal/bus"
	"foodfast/internal/types"
)

var (
	ErrNotFound           = errors.New("vehicle not found")
	ErrNoVehicleAvailable = errors.New("no vehicle available")
	ErrBadRequest         = errors.New("bad request")
)

type Service struct {
	store  Store
	events bus.Publisher
}

func NewService(store Store, events bus.Publisher) *Service {
	return &Service{store: store, events: events}
}

type CreateCommand struct {
	Name        string
	Model       string
	BranchID    types.ID
	ChargeLevel int
	Location    types.Point
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Vehicle, error) {
	if cmd.Name == "" || cmd.BranchID == "" {
		return nil, ErrBadRequest
	}
	now := time.Now()
	v := &Vehicle{
		ID:           newID(),
		Name:         cmd.Name,
		Model:        cmd.Model,
		Availability: AvailabilityIdle,
		ChargeLevel:  clampCharge(cmd.ChargeLevel),
		BranchID:     cmd.BranchID,
		Location:     cmd.Location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if v.Model == "" {
		v.Model = "Delivery X1"
	}
	if cmd.ChargeLevel == 0 {
		v.ChargeLevel = 100
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, err
	}
	s.publishVehicle(v)
	return v, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Vehicle, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, branchID types.ID) ([]*Vehicle, error) {
	return s.store.List(ctx, branchID)
}

func (s *Service) Update(ctx context.Context, id types.ID, p Patch) (*Vehicle, error) {
	if p.Availability != nil {
		if !ValidAvailability(*p.Availability) {
			return nil, ErrBadRequest
		}
		// Claim is the only path into delivering; an edit cannot fabricate
		// an assignment, so the pair would come apart.
		if *p.Availability == AvailabilityDelivering {
			return nil, ErrBadRequest
		}
	}
	v, err := s.store.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.publishVehicle(v)
	return v, nil
}

func (s *Service) Delete(ctx context.Context, id types.ID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(bus.Event{Topic: bus.TopicGlobal, Kind: bus.KindVehicleDeleted, Payload: id})
	return nil
}

// Claim reserves an idle vehicle with enough charge for an order. The
// reservation is atomic within the registry; callers own the later Release.
func (s *Service) Claim(ctx context.Context, branchID, orderID types.ID, minCharge int) (*Vehicle, error) {
	if branchID == "" || orderID == "" {
		return nil, ErrBadRequest
	}
	v, err := s.store.Claim(ctx, branchID, orderID, minCharge)
	if err != nil {
		return nil, err
	}
	s.publishVehicle(v)
	return v, nil
}

// Release returns a vehicle to the idle pool. chargeCost is the completion
// cost; an aborted trip releases with cost zero.
func (s *Service) Release(ctx context.Context, id types.ID, chargeCost int) (*Vehicle, error) {
	v, err := s.store.Release(ctx, id, chargeCost)
	if err != nil {
		return nil, err
	}
	s.publishVehicle(v)
	return v, nil
}

func (s *Service) publishVehicle(v *Vehicle) {
	s.events.Publish(bus.Event{Topic: bus.TopicGlobal, Kind: bus.KindVehicleUpdate, Payload: v})
}

func newID() types.ID {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
