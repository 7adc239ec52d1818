// README: Order aggregate and status state machine.
package order

import (
	"time"

	"foodfast/internal/types"
)

type Status string

const (
	StatusPendingPayment    Status = "PENDING_PAYMENT"
	StatusPaidWaiting       Status = "PAID_WAITING_PROCESS"
	StatusPreparing         Status = "PREPARING"
	StatusReadyToShip       Status = "READY_TO_SHIP"
	StatusProcessingRequest Status = "PROCESSING_REQUEST"
	StatusShipping          Status = "SHIPPING"
	StatusDelivered         Status = "DELIVERED"
	StatusCancelled         Status = "CANCELLED"
)

// Item is one ordered line. UnitPrice is the catalog price at order-creation
// time, selected options included; it is never recomputed afterwards.
type Item struct {
	ProductID types.ID      `json:"product_id"`
	Name      string        `json:"name"`
	Image     string        `json:"image,omitempty"`
	Qty       int           `json:"qty"`
	UnitPrice types.Money   `json:"unit_price"`
	Options   []ItemOption  `json:"options,omitempty"`
	Note      string        `json:"note,omitempty"`
}

type ItemOption struct {
	Name  string      `json:"name"`
	Price types.Money `json:"price"`
}

type Shipping struct {
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type Order struct {
	ID            types.ID    `json:"id"`
	UserID        types.ID    `json:"user_id"`
	BranchID      types.ID    `json:"branch_id"`
	Items         []Item      `json:"items"`
	Shipping      Shipping    `json:"shipping"`
	Origin        types.Point `json:"origin"`
	Destination   types.Point `json:"destination"`
	PaymentMethod string      `json:"payment_method"`
	Note          string      `json:"note,omitempty"`
	TotalPrice    types.Money `json:"total_price"`
	Paid          bool        `json:"paid"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	Status        Status      `json:"status"`
	StatusVersion int         `json:"-"`
	VehicleID     *types.ID   `json:"vehicle_id,omitempty"`
	DeliveredAt   *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// AllowedTransitions is the order lifecycle as code. CANCELLED is a terminal
// absorbing state; PROCESSING_REQUEST is the transient dispatch-in-flight
// state and may roll back to READY_TO_SHIP. SHIPPING may still be cancelled,
// which also aborts the running delivery task.
var AllowedTransitions = map[Status][]Status{
	StatusPendingPayment:    {StatusPaidWaiting, StatusCancelled},
	StatusPaidWaiting:       {StatusPreparing, StatusCancelled},
	StatusPreparing:         {StatusReadyToShip, StatusCancelled},
	StatusReadyToShip:       {StatusProcessingRequest, StatusShipping, StatusCancelled},
	StatusProcessingRequest: {StatusShipping, StatusReadyToShip, StatusCancelled},
	StatusShipping:          {StatusDelivered, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is one of the defined lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPendingPayment, StatusPaidWaiting, StatusPreparing, StatusReadyToShip,
		StatusProcessingRequest, StatusShipping, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
