package domain

import "time"

// CouponHold binds a coupon to at most one live order. ConsumedBy is empty
// while the coupon is available; it is cleared again when the consuming
// order reaches failed or refunded.
type CouponHold struct {
	ID             string
	BuyerID        string
	DiscountAmount int64
	ConsumedBy     string
	UsedAt         *time.Time
}
