// README: Per-assignment delivery simulation tasks with cancellable tick loops.
package delivery

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"foodfast/internal/bus"
	"foodfast/internal/modules/fleet"
	"foodfast/internal/modules/order"
	"foodfast/internal/types"
)

var ErrActiveDelivery = errors.New("delivery already in progress for order")

// Orders is the slice of the order store a trip needs: finalizing on arrival.
type Orders interface {
	Deliver(ctx context.Context, id types.ID) (*order.Order, error)
}

// Fleet is the slice of the vehicle registry a trip needs: releasing the
// vehicle when the trip ends.
type Fleet interface {
	Release(ctx context.Context, id types.ID, chargeCost int) (*fleet.Vehicle, error)
}

type Config struct {
	// Tick is the wall-clock interval between position updates.
	Tick time.Duration
	// Step is the route fraction covered per tick.
	Step float64
	// ChargeCost is deducted from the vehicle on completion (not on abort).
	ChargeCost int
}

// Progress is the payload published on the order topic every tick.
type Progress struct {
	OrderID     types.ID    `json:"order_id"`
	VehicleID   types.ID    `json:"vehicle_id"`
	VehicleName string      `json:"vehicle_name"`
	Caption     string      `json:"caption"`
	Location    types.Point `json:"location"`
	Progress    float64     `json:"progress"`
	TotalKm     float64     `json:"total_km"`
	TraveledKm  float64     `json:"traveled_km"`
	RemainingKm float64     `json:"remaining_km"`
}

const (
	captionCruising = "On the way to your location"
	captionHalfway  = "Halfway to your location"
	captionLanding  = "Landing at your delivery location"
)

func captionFor(progress float64) string {
	switch {
	case progress >= 1.0:
		return captionLanding
	case math.Abs(progress-0.5) < 0.01:
		return captionHalfway
	default:
		return captionCruising
	}
}

// Spec describes one trip to simulate.
type Spec struct {
	OrderID     types.ID
	VehicleID   types.ID
	VehicleName string
	Origin      types.Point
	Destination types.Point
}

// Task is one running trip. It owns its goroutine; nothing else mutates its
// state.
type Task struct {
	spec   Spec
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed when the trip has finished or been aborted.
func (t *Task) Done() <-chan struct{} { return t.done }

// Manager tracks running tasks by order id so cancellation paths can reach
// them.
type Manager struct {
	orders Orders
	fleet  Fleet
	events bus.Publisher
	cfg    Config

	mu    sync.Mutex
	tasks map[types.ID]*Task
}

func NewManager(orders Orders, fleetSvc Fleet, events bus.Publisher, cfg Config) *Manager {
	return &Manager{
		orders: orders,
		fleet:  fleetSvc,
		events: events,
		cfg:    cfg,
		tasks:  make(map[types.ID]*Task),
	}
}

// Start launches the trip goroutine. At most one task may exist per order.
// The task owns its lifetime: it ends on arrival or via Cancel, never with
// the caller. Tying it to a request-scoped context would abort every trip
// the moment the dispatch response is written.
func (m *Manager) Start(spec Spec) (*Task, error) {
	taskCtx, cancel := context.WithCancel(context.Background())
	t := &Task{spec: spec, cfg: m.cfg, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, exists := m.tasks[spec.OrderID]; exists {
		m.mu.Unlock()
		cancel()
		return nil, ErrActiveDelivery
	}
	m.tasks[spec.OrderID] = t
	m.mu.Unlock()

	go m.run(taskCtx, t)
	return t, nil
}

// Cancel aborts the running task for an order, if any. The vehicle is
// released without the completion charge cost; the order is not finalized.
func (m *Manager) Cancel(orderID types.ID) bool {
	m.mu.Lock()
	t, ok := m.tasks[orderID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	return true
}

// Active reports whether a trip is currently running for the order.
func (m *Manager) Active(orderID types.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[orderID]
	return ok
}

func (m *Manager) run(ctx context.Context, t *Task) {
	defer close(t.done)
	defer func() {
		m.mu.Lock()
		delete(m.tasks, t.spec.OrderID)
		m.mu.Unlock()
	}()
	defer t.cancel()

	spec := t.spec
	totalKm := haversineKm(spec.Origin, spec.Destination)
	log.Printf("delivery: %s departing for order %s, %.2f km", spec.VehicleName, spec.OrderID, totalKm)

	ticker := time.NewTicker(t.cfg.Tick)
	defer ticker.Stop()

	progress := 0.0
	for {
		select {
		case <-ctx.Done():
			m.abort(spec)
			return
		case <-ticker.C:
		}

		progress += t.cfg.Step
		frac := math.Min(progress, 1.0)
		traveled := totalKm * frac
		m.events.Publish(bus.Event{
			Topic: bus.OrderTopic(spec.OrderID),
			Kind:  bus.KindProgressUpdate,
			Payload: Progress{
				OrderID:     spec.OrderID,
				VehicleID:   spec.VehicleID,
				VehicleName: spec.VehicleName,
				Caption:     captionFor(progress),
				Location:    interpolate(spec.Origin, spec.Destination, frac),
				Progress:    frac,
				TotalKm:     totalKm,
				TraveledKm:  traveled,
				RemainingKm: math.Max(0, totalKm-traveled),
			},
		})

		if progress >= 1.0 {
			m.complete(spec)
			return
		}
	}
}

// complete finalizes the order and releases the vehicle. The two calls are
// independent best-effort side effects: a failed finalize never holds the
// vehicle hostage, at the price of transient store disagreement that the
// dispatch reconciler sweeps up later.
func (m *Manager) complete(spec Spec) {
	ctx := context.Background()
	log.Printf("delivery: %s completed order %s", spec.VehicleName, spec.OrderID)

	if _, err := m.orders.Deliver(ctx, spec.OrderID); err != nil {
		log.Printf("delivery: finalize order %s: %v", spec.OrderID, err)
	}
	if _, err := m.fleet.Release(ctx, spec.VehicleID, m.cfg.ChargeCost); err != nil {
		log.Printf("delivery: release vehicle %s: %v", spec.VehicleID, err)
	}
}

func (m *Manager) abort(spec Spec) {
	log.Printf("delivery: trip for order %s aborted", spec.OrderID)
	if _, err := m.fleet.Release(context.Background(), spec.VehicleID, 0); err != nil {
		log.Printf("delivery: release vehicle %s after abort: %v", spec.VehicleID, err)
	}
}
