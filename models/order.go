package models

import "time"

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderFailed   OrderStatus = "failed"
	OrderCanceled OrderStatus = "canceled"
	OrderRefunded OrderStatus = "refunded"
)

// Terminal reports whether the status allows no further transitions.
// Every status except pending is terminal; in particular no edge leaves paid.
func (s OrderStatus) Terminal() bool {
	return s != OrderPending
}

// CanTransition reports whether the order state machine permits the edge.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return s == OrderPending && to.Terminal()
}

type Order struct {
	ID            string
	AccountID     string
	PlanID        string
	Amount        int64 // smallest currency unit
	Currency      string
	PaymentMethod string
	Status        OrderStatus

	GatewayPaymentID string
	PaidAt           *time.Time
	Metadata         map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}
