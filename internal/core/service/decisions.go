package service

import "github.com/daho-labs/payflow/internal/core/domain"

type DecisionKind string

const (
	// DecideNoOp: the transition already took effect; report success
	// without mutating state.
	DecideNoOp DecisionKind = "noop"
	// DecideReject: the evidence does not confirm the transition; leave the
	// order as-is.
	DecideReject DecisionKind = "reject"
	// DecideComplete: commit pending -> completed.
	DecideComplete DecisionKind = "complete"
	// DecideFail: commit pending -> failed (amount mismatch).
	DecideFail DecisionKind = "fail"
	// DecideRefund: commit completed -> refunded.
	DecideRefund DecisionKind = "refund"
	// DecideInvalid: the transition is not legal from the current status.
	DecideInvalid DecisionKind = "invalid"
)

type Decision struct {
	Kind          DecisionKind
	Reason        string
	ReleaseCoupon bool
}

// DecideConfirmation decides how a webhook-reported payment applies to the
// order's persisted state. It performs no I/O.
func DecideConfirmation(order *domain.Order, payment *domain.GatewayPayment) Decision {
	// Duplicate delivery of an already-committed confirmation is success,
	// not an error; the webhook is at-least-once.
	if order.Status == domain.OrderStatusCompleted {
		return Decision{Kind: DecideNoOp, Reason: "already processed"}
	}

	// A non-final gateway state is not proof of failure, only of
	// non-confirmation yet. The order stays pending.
	if payment.Status != domain.GatewayStatusPaid {
		return Decision{Kind: DecideReject, Reason: "payment not completed upstream: " + payment.Status}
	}

	if order.Status != domain.OrderStatusPending {
		return Decision{Kind: DecideInvalid, Reason: "order is " + order.Status.String()}
	}

	// Amount mismatch is a fraud signal: the client-side amount was
	// tampered with, or the gateway charged something else. Force failed
	// rather than merely rejecting, so the coupon hold is released and the
	// order can never complete later.
	if payment.Amount != order.Amount {
		return Decision{Kind: DecideFail, Reason: "reported amount does not match order"}
	}

	return Decision{Kind: DecideComplete}
}

// DecideRefundRequest decides whether a refund may proceed for the order.
// It performs no I/O.
func DecideRefundRequest(order *domain.Order, requestedAmount int64) Decision {
	// Repeated refund requests are safe under at-least-once delivery: the
	// second one reports success without a second gateway cancel.
	if order.Status == domain.OrderStatusRefunded {
		return Decision{Kind: DecideNoOp, Reason: "already refunded"}
	}

	if order.Status != domain.OrderStatusCompleted {
		return Decision{Kind: DecideInvalid, Reason: "only completed orders can be refunded"}
	}

	if requestedAmount <= 0 || requestedAmount > order.Amount {
		return Decision{Kind: DecideReject, Reason: "refund amount out of range"}
	}

	return Decision{Kind: DecideRefund, ReleaseCoupon: order.CouponID != ""}
}

// ValidateCreation checks request shape for a new order. Coupon
// availability is deliberately not checked here: the check and the hold
// happen atomically in the ledger to avoid a check-then-act race between
// concurrent creations.
func ValidateCreation(draft domain.OrderDraft) error {
	var missing []string
	if draft.ContentID == "" {
		missing = append(missing, "item_id")
	}
	if draft.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if draft.PayMethod == "" {
		missing = append(missing, "pay_method")
	}
	if draft.TxID == "" {
		missing = append(missing, "tx_id")
	}
	if draft.MerchantRef == "" {
		missing = append(missing, "merchant_ref")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
