package service

import (
	"time"

	"github.com/daho-labs/payflow/internal/core/domain"
)

// TamperAlert is raised when the gateway-reported amount differs from the
// order's expected amount. A cancel-out-of-band may already be in flight,
// so alerts are queued for the security worker rather than handled inline.
type TamperAlert struct {
	OrderID        string
	MerchantRef    string
	TxID           string
	ExpectedAmount int64
	ReportedAmount int64
	At             time.Time
}

func (s *PaymentService) raiseTamperAlert(order *domain.Order, payment *domain.GatewayPayment) {
	alert := TamperAlert{
		OrderID:        order.ID,
		MerchantRef:    order.MerchantRef,
		TxID:           payment.TxID,
		ExpectedAmount: order.Amount,
		ReportedAmount: payment.Amount,
		At:             time.Now(),
	}

	select {
	case s.alerts <- alert:
	default:
		// Never block the webhook path on a full queue.
		s.logger.Error().
			Str("order_id", alert.OrderID).
			Int64("expected_amount", alert.ExpectedAmount).
			Int64("reported_amount", alert.ReportedAmount).
			Msg("tamper alert queue full, logging inline")
	}
}

// Alerts exposes the tamper alert queue to the security worker.
func (s *PaymentService) Alerts() <-chan TamperAlert {
	return s.alerts
}

// Close closes the alert queue. Call only after all handlers have stopped.
func (s *PaymentService) Close() {
	close(s.alerts)
}
