// README: Dispatch coordinator; reserves a vehicle for a ready order and hands the trip to the simulator.
package dispatch

import (
	"context"
	"log"
	"time"

	"foodfast/internal/config"
	"foodfast/internal/modules/delivery"
	"foodfast/internal/modules/fleet"
	"foodfast/internal/modules/order"
	"foodfast/internal/types"
)

// Estimator supplies an optional human-readable travel estimate for the
// dispatch response. A nil estimator disables estimates.
type Estimator interface {
	TravelEstimate(ctx context.Context, origin, destination types.Point) (time.Duration, string, error)
}

type Service struct {
	orders     *order.Service
	fleet      *fleet.Service
	deliveries *delivery.Manager
	estimator  Estimator
	cfg        config.DispatchConfig
}

func NewService(orders *order.Service, fleetSvc *fleet.Service, deliveries *delivery.Manager, estimator Estimator, cfg config.DispatchConfig) *Service {
	return &Service{
		orders:     orders,
		fleet:      fleetSvc,
		deliveries: deliveries,
		estimator:  estimator,
		cfg:        cfg,
	}
}

// Result is what a successful dispatch hands back: the shipping order, the
// reserved vehicle, and an optional travel estimate.
type Result struct {
	Order    *order.Order   `json:"order"`
	Vehicle  *fleet.Vehicle `json:"vehicle"`
	ETA      string         `json:"eta,omitempty"`
	Distance string         `json:"distance,omitempty"`
}

// Dispatch moves a ready order into shipping. The order is first parked in
// the matching state so concurrent dispatches fight over the status edge, not
// the fleet; exactly one caller wins the first transition.
func (s *Service) Dispatch(ctx context.Context, orderID types.ID) (*Result, error) {
	o, err := s.orders.Transition(ctx, order.TransitionCommand{
		OrderID: orderID,
		Target:  order.StatusProcessingRequest,
	})
	if err != nil {
		return nil, err
	}

	v, err := s.fleet.Claim(ctx, o.BranchID, o.ID, s.cfg.MinChargeLevel)
	if err != nil {
		s.rollback(ctx, o.ID)
		return nil, err
	}

	shipped, err := s.orders.Transition(ctx, order.TransitionCommand{
		OrderID:   o.ID,
		Target:    order.StatusShipping,
		VehicleID: &v.ID,
	})
	if err != nil {
		// The order left the matching state under us (a concurrent cancel);
		// hand the vehicle back untouched.
		if _, relErr := s.fleet.Release(ctx, v.ID, 0); relErr != nil {
			log.Printf("dispatch: release %s after lost order %s: %v", v.ID, o.ID, relErr)
		}
		return nil, err
	}

	if _, err := s.deliveries.Start(delivery.Spec{
		OrderID:     shipped.ID,
		VehicleID:   v.ID,
		VehicleName: v.Name,
		Origin:      shipped.Origin,
		Destination: shipped.Destination,
	}); err != nil {
		log.Printf("dispatch: start trip for order %s: %v", shipped.ID, err)
	}

	res := &Result{Order: shipped, Vehicle: v}
	if s.estimator != nil {
		if eta, dist, err := s.estimator.TravelEstimate(ctx, shipped.Origin, shipped.Destination); err == nil {
			res.ETA = eta.String()
			res.Distance = dist
		} else {
			log.Printf("dispatch: travel estimate for order %s: %v", shipped.ID, err)
		}
	}
	return res, nil
}

// rollback returns a parked order to the ready state after a failed claim.
// Best effort: a concurrent cancel may already own the order.
func (s *Service) rollback(ctx context.Context, orderID types.ID) {
	_, err := s.orders.Transition(ctx, order.TransitionCommand{
		OrderID: orderID,
		Target:  order.StatusReadyToShip,
	})
	if err != nil {
		log.Printf("dispatch: rollback order %s: %v", orderID, err)
	}
}

// Cancel cancels an order and, if a trip is in flight, aborts it. The aborted
// trip releases its vehicle without the completion charge cost.
func (s *Service) Cancel(ctx context.Context, orderID types.ID) (*order.Order, error) {
	o, err := s.orders.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.deliveries.Cancel(orderID)
	return o, nil
}

// RunReconciler periodically sweeps shipping orders whose trip is gone (a
// crashed task or restarted process) and settles them: the order is
// finalized and the vehicle, if still bound to the order, released.
func (s *Service) RunReconciler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcile(ctx)
		}
	}
}

func (s *Service) reconcile(ctx context.Context) {
	stuck, err := s.orders.List(ctx, order.Filter{Status: order.StatusShipping})
	if err != nil {
		log.Printf("dispatch: reconcile list: %v", err)
		return
	}
	for _, o := range stuck {
		if s.deliveries.Active(o.ID) {
			continue
		}
		log.Printf("dispatch: reconciling orphaned shipping order %s", o.ID)
		if _, err := s.orders.Deliver(ctx, o.ID); err != nil {
			log.Printf("dispatch: reconcile finalize %s: %v", o.ID, err)
			continue
		}
		if o.VehicleID == nil {
			continue
		}
		v, err := s.fleet.Get(ctx, *o.VehicleID)
		if err != nil || v.AssignedOrder == nil || *v.AssignedOrder != o.ID {
			continue
		}
		if _, err := s.fleet.Release(ctx, v.ID, s.cfg.ChargeCost); err != nil {
			log.Printf("dispatch: reconcile release %s: %v", v.ID, err)
		}
	}
}
