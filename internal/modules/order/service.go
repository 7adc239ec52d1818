// README: Order service implements catalog-priced creation and guarded status transitions.
package order

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
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("order status conflict")
	ErrBadRequest        = errors.New("bad request")
)

// Product is the catalog's view of a sellable item at pricing time.
type Product struct {
	ID      types.ID
	Name    string
	Image   string
	Price   types.Money
	Options []ItemOption
}

// Catalog resolves live product prices at order-creation time. The catalog
// service itself is an external collaborator.
type Catalog interface {
	Product(ctx context.Context, id types.ID) (*Product, error)
}

type Service struct {
	store   Store
	events  bus.Publisher
	catalog Catalog
}

func NewService(store Store, events bus.Publisher, catalog Catalog) *Service {
	return &Service{store: store, events: events, catalog: catalog}
}

// Demo coordinates used when the ordering flow supplies none
// (restaurant in district 1, customer near Ben Thanh market).
var (
	defaultOrigin      = types.Point{Lat: 10.7769, Lng: 106.7009}
	defaultDestination = types.Point{Lat: 10.7626, Lng: 106.6602}
)

type CreateItem struct {
	ProductID types.ID
	Qty       int
	Options   []string
	Note      string
}

type CreateCommand struct {
	UserID        types.ID
	BranchID      types.ID
	Items         []CreateItem
	Shipping      Shipping
	Origin        types.Point
	Destination   types.Point
	PaymentMethod string
	Note          string
}

type TransitionCommand struct {
	OrderID   types.ID
	Target    Status
	VehicleID *types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.UserID == "" || cmd.BranchID == "" || len(cmd.Items) == 0 {
		return nil, ErrBadRequest
	}

	var items []Item
	var total types.Money
	for _, in := range cmd.Items {
		if in.Qty <= 0 {
			return nil, ErrBadRequest
		}
		p, err := s.catalog.Product(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		unit := p.Price
		var opts []ItemOption
		for _, name := range in.Options {
			for _, dbOpt := range p.Options {
				if dbOpt.Name == name {
					unit = unit.Add(dbOpt.Price)
					opts = append(opts, dbOpt)
					break
				}
			}
		}
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Qty:       in.Qty,
			UnitPrice: unit,
			Options:   opts,
			Note:      in.Note,
		})
		if total.Currency == "" {
			total.Currency = unit.Currency
		}
		total = total.Add(unit.Mul(in.Qty))
	}

	now := time.Now()
	o := &Order{
		ID:            newID(),
		UserID:        cmd.UserID,
		BranchID:      cmd.BranchID,
		Items:         items,
		Shipping:      cmd.Shipping,
		Origin:        cmd.Origin,
		Destination:   cmd.Destination,
		PaymentMethod: cmd.PaymentMethod,
		Note:          cmd.Note,
		TotalPrice:    total,
		Status:        StatusPendingPayment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = "COD"
	}
	if o.Origin.IsZero() {
		o.Origin = defaultOrigin
	}
	if o.Destination.IsZero() {
		o.Destination = defaultDestination
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}

	s.events.Publish(bus.Event{Topic: bus.BranchTopic(o.BranchID), Kind: bus.KindNewOrder, Payload: o})
	s.events.Publish(bus.Event{Topic: bus.TopicGlobal, Kind: bus.KindAdminRefresh})
	return o, nil
}

// Transition applies one edge of the status state machine and fans the
// accepted change out to the order, branch, and global topics.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
	if !ValidStatus(cmd.Target) {
		return nil, ErrBadRequest
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.Target) {
		return nil, ErrInvalidTransition
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.Target, o.StatusVersion, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.publishStatus(updated)
	return updated, nil
}

// MarkPaid records a successful payment capture and releases the order to
// the branch for preparation.
func (s *Service) MarkPaid(ctx context.Context, id types.ID) (*Order, error) {
	return s.Transition(ctx, TransitionCommand{OrderID: id, Target: StatusPaidWaiting})
}

// Deliver finalizes a shipped order. Called by the delivery simulator on
// arrival.
func (s *Service) Deliver(ctx context.Context, id types.ID) (*Order, error) {
	return s.Transition(ctx, TransitionCommand{OrderID: id, Target: StatusDelivered})
}

func (s *Service) Cancel(ctx context.Context, id types.ID) (*Order, error) {
	return s.Transition(ctx, TransitionCommand{OrderID: id, Target: StatusCancelled})
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Order, error) {
	return s.store.List(ctx, f)
}

type statusPayload struct {
	Status    Status    `json:"status"`
	VehicleID *types.ID `json:"vehicle_id,omitempty"`
}

func (s *Service) publishStatus(o *Order) {
	s.events.Publish(bus.Event{
		Topic:   bus.OrderTopic(o.ID),
		Kind:    bus.KindStatusUpdate,
		Payload: statusPayload{Status: o.Status, VehicleID: o.VehicleID},
	})
	s.events.Publish(bus.Event{Topic: bus.BranchTopic(o.BranchID), Kind: bus.KindOrderUpdate, Payload: o})
	s.events.Publish(bus.Event{Topic: bus.TopicGlobal, Kind: bus.KindAdminRefresh})
}

func newID() types.ID {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
