// README: Vehicle aggregate and availability states.
package fleet

import (
	"time"

	"foodfast/internal/types"
)

type Availability string

const (
	AvailabilityIdle        Availability = "idle"
	AvailabilityDelivering  Availability = "delivering"
	AvailabilityReturning   Availability = "returning"
	AvailabilityCharging    Availability = "charging"
	AvailabilityMaintenance Availability = "maintenance"
)

// Vehicle is a delivery unit owned by one branch. AssignedOrder is non-nil
// exactly when Availability is delivering; Claim and Release are the only
// paths that touch the pair together.
type Vehicle struct {
	ID            types.ID     `json:"id"`
	Name          string       `json:"name"`
	Model         string       `json:"model"`
	Availability  Availability `json:"availability"`
	ChargeLevel   int          `json:"charge_level"`
	BranchID      types.ID     `json:"branch_id"`
	AssignedOrder *types.ID    `json:"assigned_order,omitempty"`
	Location      types.Point  `json:"location"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func ValidAvailability(a Availability) bool {
	switch a {
	case AvailabilityIdle, AvailabilityDelivering, AvailabilityReturning,
		AvailabilityCharging, AvailabilityMaintenance:
		return true
	}
	return false
}
