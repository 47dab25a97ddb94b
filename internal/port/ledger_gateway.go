package port

import (
	"context"
	"errors"

	"github.com/daho-labs/payflow/internal/core/domain"
)

// Sentinel errors returned by LedgerGateway implementations. Callers map
// them to responses with errors.Is; the ledger never partially applies an
// operation before returning one of these.
var (
	ErrCouponUnavailable = errors.New("coupon unavailable")
	ErrItemInvalid       = errors.New("item invalid")
	ErrOrderNotFound     = errors.New("order not found")
	ErrWrongOwner        = errors.New("order owned by another buyer")
	ErrStateConflict     = errors.New("order state conflict")
	ErrAlreadyCompleted  = errors.New("order already completed")
	ErrAlreadyRefunded   = errors.New("order already refunded")
)

// CreateResult is the outcome of a successful atomic order creation.
type CreateResult struct {
	OrderID         string
	DiscountApplied int64
}

// LedgerGateway is the only component allowed to mutate persisted
// order/coupon state. Each mutating operation is all-or-nothing across the
// order row and any coupon-hold row it touches; conflicting transitions on
// the same order or coupon are serialized by the implementation.
type LedgerGateway interface {
	// CreateOrder inserts a pending order and, when draft.CouponID is set,
	// consumes the coupon hold in the same transaction.
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (*CreateResult, error)

	// CompleteOrder transitions pending -> completed, recording the gateway
	// transaction id and method/provider tags.
	CompleteOrder(ctx context.Context, orderID, txID, payMethod, pgProvider string) error

	// RefundOrder transitions completed -> refunded and releases the coupon
	// hold, if any, in the same transaction. Returns whether a coupon was
	// restored.
	RefundOrder(ctx context.Context, orderID, buyerID string, amount int64, reason string) (bool, error)

	// MarkFailed transitions pending -> failed and releases the coupon hold.
	// Used when the gateway-reported amount does not match the order.
	MarkFailed(ctx context.Context, orderID string) error

	// OrderByMerchantRef looks up an order by its merchant reference.
	OrderByMerchantRef(ctx context.Context, merchantRef string) (*domain.Order, error)

	// OrderByID looks up an order owned by buyerID.
	OrderByID(ctx context.Context, orderID, buyerID string) (*domain.Order, error)
}
