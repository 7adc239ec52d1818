package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"foodfast/internal/bus"
	"foodfast/internal/config"
	"foodfast/internal/modules/delivery"
	"foodfast/internal/modules/fleet"
	"foodfast/internal/modules/order"
	"foodfast/internal/types"
)

type stubCatalog struct{}

func (stubCatalog) Product(_ context.Context, id types.ID) (*order.Product, error) {
	return &order.Product{
		ID:    id,
		Name:  "Pho Bo",
		Price: types.Money{Amount: 55000, Currency: "VND"},
	}, nil
}

type fixture struct {
	orders   *order.Service
	fleet    *fleet.Service
	dispatch *Service
}

func newFixture(t *testing.T, tick time.Duration, step float64) *fixture {
	t.Helper()
	hub := bus.NewHub()
	orders := order.NewService(order.NewMemStore(), hub, stubCatalog{})
	fleetSvc := fleet.NewService(fleet.NewMemStore(), hub)

	cfg := config.DispatchConfig{
		MinChargeLevel:    20,
		ChargeCost:        10,
		Tick:              tick,
		ProgressStep:      step,
		ReconcileInterval: time.Hour,
	}
	deliveries := delivery.NewManager(orders, fleetSvc, hub, delivery.Config{
		Tick:       cfg.Tick,
		Step:       cfg.ProgressStep,
		ChargeCost: cfg.ChargeCost,
	})
	return &fixture{
		orders:   orders,
		fleet:    fleetSvc,
		dispatch: NewService(orders, fleetSvc, deliveries, nil, cfg),
	}
}

// readyOrder walks a fresh order to the ready-to-ship state.
func readyOrder(t *testing.T, f *fixture, branchID types.ID) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, order.CreateCommand{
		UserID:   "u1",
		BranchID: branchID,
		Items:    []order.CreateItem{{ProductID: "p1", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	for _, target := range []order.Status{order.StatusPaidWaiting, order.StatusPreparing, order.StatusReadyToShip} {
		if o, err = f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: target}); err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}
	return o
}

func addVehicle(t *testing.T, f *fixture, name string, branchID types.ID, charge int) *fleet.Vehicle {
	t.Helper()
	v, err := f.fleet.Create(context.Background(), fleet.CreateCommand{
		Name: name, BranchID: branchID, ChargeLevel: charge,
	})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return v
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDispatchRunsTripToDelivered(t *testing.T) {
	f := newFixture(t, time.Millisecond, 0.5)
	ctx := context.Background()
	o := readyOrder(t, f, "b1")
	v := addVehicle(t, f, "V1", "b1", 100)

	res, err := f.dispatch.Dispatch(ctx, o.ID)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Order.Status != order.StatusShipping {
		t.Fatalf("expected shipping, got %s", res.Order.Status)
	}
	if res.Order.VehicleID == nil || *res.Order.VehicleID != v.ID {
		t.Fatal("expected vehicle recorded on order")
	}
	if res.Vehicle.Availability != fleet.AvailabilityDelivering {
		t.Fatalf("expected delivering vehicle, got %s", res.Vehicle.Availability)
	}

	waitFor(t, "order delivered", func() bool {
		got, err := f.orders.Get(ctx, o.ID)
		return err == nil && got.Status == order.StatusDelivered
	})
	waitFor(t, "vehicle released", func() bool {
		got, err := f.fleet.Get(ctx, v.ID)
		return err == nil && got.Availability == fleet.AvailabilityIdle
	})

	released, err := f.fleet.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if released.ChargeLevel != 90 {
		t.Fatalf("expected completion charge cost applied, got %d", released.ChargeLevel)
	}
	if released.AssignedOrder != nil {
		t.Fatal("expected assignment cleared after delivery")
	}
	delivered, _ := f.orders.Get(ctx, o.ID)
	if delivered.DeliveredAt == nil {
		t.Fatal("expected delivered timestamp")
	}
}

func TestDispatchNoVehicleRollsBack(t *testing.T) {
	f := newFixture(t, time.Second, 0.05)
	ctx := context.Background()
	o := readyOrder(t, f, "b1")
	addVehicle(t, f, "drained", "b1", 15)
	addVehicle(t, f, "elsewhere", "b2", 100)

	if _, err := f.dispatch.Dispatch(ctx, o.ID); err != fleet.ErrNoVehicleAvailable {
		t.Fatalf("expected ErrNoVehicleAvailable, got %v", err)
	}
	got, err := f.orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != order.StatusReadyToShip {
		t.Fatalf("expected rollback to ready, got %s", got.Status)
	}

	// The order stays dispatchable: add a vehicle and retry.
	addVehicle(t, f, "fresh", "b1", 100)
	if _, err := f.dispatch.Dispatch(ctx, o.ID); err != nil {
		t.Fatalf("retry dispatch: %v", err)
	}
}

func TestDispatchRejectsOrderNotReady(t *testing.T) {
	f := newFixture(t, time.Second, 0.05)
	ctx := context.Background()
	addVehicle(t, f, "V1", "b1", 100)

	o, err := f.orders.Create(ctx, order.CreateCommand{
		UserID: "u1", BranchID: "b1",
		Items: []order.CreateItem{{ProductID: "p1", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := f.dispatch.Dispatch(ctx, o.ID); err != order.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.dispatch.Dispatch(ctx, "missing"); err != order.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentDispatchSingleWinner(t *testing.T) {
	f := newFixture(t, time.Hour, 0.05)
	ctx := context.Background()
	o := readyOrder(t, f, "b1")
	addVehicle(t, f, "V1", "b1", 100)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.dispatch.Dispatch(ctx, o.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		switch err {
		case nil:
			success++
		case order.ErrInvalidTransition, order.ErrConflict:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winning dispatch, got %d", success)
	}

	got, _ := f.orders.Get(ctx, o.ID)
	if got.Status != order.StatusShipping {
		t.Fatalf("expected shipping, got %s", got.Status)
	}
	f.dispatch.deliveries.Cancel(o.ID)
}

func TestTripOutlivesDispatchCaller(t *testing.T) {
	f := newFixture(t, time.Millisecond, 0.5)
	o := readyOrder(t, f, "b1")
	v := addVehicle(t, f, "V1", "b1", 100)

	// A handler's context dies as soon as the response is written; the trip
	// must keep running regardless.
	callerCtx, cancel := context.WithCancel(context.Background())
	res, err := f.dispatch.Dispatch(callerCtx, o.ID)
	cancel()
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Order.Status != order.StatusShipping {
		t.Fatalf("expected shipping, got %s", res.Order.Status)
	}

	waitFor(t, "order delivered", func() bool {
		got, err := f.orders.Get(context.Background(), o.ID)
		return err == nil && got.Status == order.StatusDelivered
	})
	waitFor(t, "vehicle released", func() bool {
		got, err := f.fleet.Get(context.Background(), v.ID)
		return err == nil && got.Availability == fleet.AvailabilityIdle
	})
	got, err := f.fleet.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if got.ChargeLevel != 90 {
		t.Fatalf("expected completion charge cost, not an abort: charge %d", got.ChargeLevel)
	}
}

func TestTwoOrdersOneVehicle(t *testing.T) {
	f := newFixture(t, time.Hour, 0.05)
	ctx := context.Background()
	o1 := readyOrder(t, f, "b1")
	o2 := readyOrder(t, f, "b1")
	addVehicle(t, f, "V1", "b1", 100)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, id := range []types.ID{o1.ID, o2.ID} {
		wg.Add(1)
		go func(oid types.ID) {
			defer wg.Done()
			_, err := f.dispatch.Dispatch(ctx, oid)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	success, noVehicle := 0, 0
	for err := range results {
		switch err {
		case nil:
			success++
		case fleet.ErrNoVehicleAvailable:
			noVehicle++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 || noVehicle != 1 {
		t.Fatalf("expected one winner and one NoVehicleAvailable, got %d/%d", success, noVehicle)
	}

	shipping, ready := 0, 0
	for _, id := range []types.ID{o1.ID, o2.ID} {
		got, err := f.orders.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		switch got.Status {
		case order.StatusShipping:
			shipping++
			f.dispatch.deliveries.Cancel(id)
		case order.StatusReadyToShip:
			ready++
		default:
			t.Fatalf("unexpected status %s", got.Status)
		}
	}
	if shipping != 1 || ready != 1 {
		t.Fatalf("expected one shipping and one ready order, got %d/%d", shipping, ready)
	}
}

func TestCancelAbortsTripAndFreesVehicle(t *testing.T) {
	f := newFixture(t, time.Hour, 0.05)
	ctx := context.Background()
	o := readyOrder(t, f, "b1")
	v := addVehicle(t, f, "V1", "b1", 100)

	if _, err := f.dispatch.Dispatch(ctx, o.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	cancelled, err := f.dispatch.Cancel(ctx, o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != order.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	waitFor(t, "vehicle freed", func() bool {
		got, err := f.fleet.Get(ctx, v.ID)
		return err == nil && got.Availability == fleet.AvailabilityIdle
	})
	got, _ := f.fleet.Get(ctx, v.ID)
	if got.ChargeLevel != 100 {
		t.Fatalf("aborted trip must not cost charge, got %d", got.ChargeLevel)
	}
	if got.AssignedOrder != nil {
		t.Fatal("expected assignment cleared")
	}
	waitFor(t, "trip gone", func() bool { return !f.dispatch.deliveries.Active(o.ID) })

	// The order stays cancelled even though the trip never finished.
	final, _ := f.orders.Get(ctx, o.ID)
	if final.Status != order.StatusCancelled {
		t.Fatalf("expected cancelled to stick, got %s", final.Status)
	}
}

func TestCancelWithoutTrip(t *testing.T) {
	f := newFixture(t, time.Second, 0.05)
	ctx := context.Background()
	o := readyOrder(t, f, "b1")

	cancelled, err := f.dispatch.Cancel(ctx, o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != order.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if _, err := f.dispatch.Cancel(ctx, o.ID); err != order.ErrInvalidTransition {
		t.Fatalf("cancel of cancelled order: expected ErrInvalidTransition, got %v", err)
	}
}

func TestReconcilerSettlesOrphanedShipping(t *testing.T) {
	f := newFixture(t, time.Second, 0.05)
	ctx := context.Background()

	// Build a shipping order with no live trip, as after a process restart.
	o := readyOrder(t, f, "b1")
	v := addVehicle(t, f, "V1", "b1", 100)
	claimed, err := f.fleet.Claim(ctx, "b1", o.ID, 20)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: order.StatusProcessingRequest}); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if _, err := f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: order.StatusShipping, VehicleID: &claimed.ID}); err != nil {
		t.Fatalf("to shipping: %v", err)
	}

	f.dispatch.reconcile(ctx)

	got, err := f.orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != order.StatusDelivered {
		t.Fatalf("expected delivered after sweep, got %s", got.Status)
	}
	freed, err := f.fleet.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if freed.Availability != fleet.AvailabilityIdle || freed.AssignedOrder != nil {
		t.Fatalf("expected released vehicle, got %+v", freed)
	}
	if freed.ChargeLevel != 90 {
		t.Fatalf("expected completion charge cost on sweep, got %d", freed.ChargeLevel)
	}
}
