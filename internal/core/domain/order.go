package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// IsTerminal reports whether no further transition is allowed from s.
// completed is not terminal: a completed order may still be refunded.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFailed || s == OrderStatusRefunded
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo enforces the order lifecycle:
// pending -> completed | failed, completed -> refunded.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusCompleted || next == OrderStatusFailed
	case OrderStatusCompleted:
		return next == OrderStatusRefunded
	default:
		return false
	}
}

// Order is one purchase attempt. Amount is fixed at creation and is the
// sole basis for comparison against the gateway's reported amount.
type Order struct {
	ID                string
	MerchantRef       string
	BuyerID           string
	ContentID         string
	Amount            int64 // smallest currency unit
	CouponID          string
	Status            OrderStatus
	TxID              string
	PayMethod         string
	PGProvider        string
	RefundAmount      int64
	RefundReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	WebhookVerifiedAt *time.Time
}

// OrderDraft carries the fields needed to create a pending order.
type OrderDraft struct {
	BuyerID     string
	ContentID   string
	Amount      int64
	PayMethod   string
	TxID        string
	MerchantRef string
	PGProvider  string
	CouponID    string // optional
}
