package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/daho-labs/payflow/internal/core/domain"
	"github.com/daho-labs/payflow/internal/port"
)

// PaymentService orchestrates the three order use cases. It holds no
// per-order state: all mutual exclusion lives in the ledger's atomic
// operations, and every decision re-checks persisted status first.
type PaymentService struct {
	ledger  port.LedgerGateway
	gateway port.PaymentGateway
	logger  zerolog.Logger
	alerts  chan TamperAlert
}

func NewPaymentService(ledger port.LedgerGateway, gateway port.PaymentGateway, logger zerolog.Logger, alertQueueSize int) *PaymentService {
	return &PaymentService{
		ledger:  ledger,
		gateway: gateway,
		logger:  logger,
		alerts:  make(chan TamperAlert, alertQueueSize),
	}
}

// CreateOrder validates the draft and delegates the pending-order insert
// plus coupon hold to the ledger as one atomic operation.
func (s *PaymentService) CreateOrder(ctx context.Context, draft domain.OrderDraft) (*port.CreateResult, error) {
	if err := ValidateCreation(draft); err != nil {
		return nil, err
	}

	res, err := s.ledger.CreateOrder(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", res.OrderID).
		Str("buyer_id", draft.BuyerID).
		Int64("amount", draft.Amount).
		Int64("discount", res.DiscountApplied).
		Msg("order created")

	return res, nil
}

type ConfirmResult struct {
	OrderID          string
	AlreadyProcessed bool
}

// ConfirmPayment handles a gateway webhook. The caller is not
// authenticated; trust comes from independently fetching the payment from
// the gateway and verifying it against the persisted order.
func (s *PaymentService) ConfirmPayment(ctx context.Context, txID string) (*ConfirmResult, error) {
	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	payment, err := s.gateway.FetchPayment(ctx, txID, token)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	order, err := s.ledger.OrderByMerchantRef(ctx, payment.MerchantRef)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	d := DecideConfirmation(order, payment)
	switch d.Kind {
	case DecideNoOp:
		s.logger.Info().Str("order_id", order.ID).Msg("duplicate webhook, order already completed")
		return &ConfirmResult{OrderID: order.ID, AlreadyProcessed: true}, nil

	case DecideReject:
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotCompleted, payment.Status)

	case DecideFail:
		s.raiseTamperAlert(order, payment)
		if err := s.ledger.MarkFailed(ctx, order.ID); err != nil {
			// The mismatch still has to reach the caller; a webhook
			// redelivery retries the failed mark.
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("could not mark mismatched order failed")
		}
		return nil, ErrAmountMismatch

	case DecideInvalid:
		return nil, fmt.Errorf("%w: %s", port.ErrStateConflict, d.Reason)
	}

	err = s.ledger.CompleteOrder(ctx, order.ID, payment.TxID, payment.PayMethod, payment.PGProvider)
	switch {
	case err == nil:
		s.logger.Info().
			Str("order_id", order.ID).
			Str("tx_id", payment.TxID).
			Int64("amount", payment.Amount).
			Msg("payment confirmed")
		return &ConfirmResult{OrderID: order.ID}, nil

	case errors.Is(err, port.ErrAlreadyCompleted):
		// Lost the race against a concurrent duplicate delivery.
		return &ConfirmResult{OrderID: order.ID, AlreadyProcessed: true}, nil

	case errors.Is(err, port.ErrStateConflict), errors.Is(err, port.ErrOrderNotFound):
		return nil, fmt.Errorf("confirm payment: %w", err)

	default:
		// The payment is verified paid at the gateway but the ledger write
		// failed; never retried automatically.
		return nil, &ReconciliationError{Err: err}
	}
}

type RefundResult struct {
	OrderID         string
	RefundAmount    int64
	CouponRestored  bool
	AlreadyRefunded bool
}

// RefundPayment cancels the payment at the gateway and commits the refund
// plus coupon restore atomically. A gateway refusal leaves the order
// completed; no partial refund state exists.
func (s *PaymentService) RefundPayment(ctx context.Context, buyerID, orderID string, amount int64, reason string) (*RefundResult, error) {
	order, err := s.ledger.OrderByID(ctx, orderID, buyerID)
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}

	d := DecideRefundRequest(order, amount)
	switch d.Kind {
	case DecideNoOp:
		s.logger.Info().Str("order_id", order.ID).Msg("duplicate refund request, order already refunded")
		return &RefundResult{OrderID: order.ID, RefundAmount: order.RefundAmount, AlreadyRefunded: true}, nil
	case DecideInvalid:
		return nil, ErrRefundNotAllowed
	case DecideReject:
		return nil, ErrRefundAmountInvalid
	}

	token, err := s.gateway.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}

	cancel, err := s.gateway.CancelPayment(ctx, order.TxID, amount, reason, token)
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	if !cancel.Success {
		// Expected business outcome, e.g. settled beyond the cancel
		// window. The order stays completed and the client may retry.
		return nil, fmt.Errorf("%w: %s", ErrRefundRefused, cancel.Message)
	}

	restored, err := s.ledger.RefundOrder(ctx, orderID, buyerID, amount, reason)
	if err != nil {
		if errors.Is(err, port.ErrAlreadyRefunded) {
			// A concurrent retry committed first; the money moved once.
			return &RefundResult{OrderID: orderID, RefundAmount: amount, AlreadyRefunded: true}, nil
		}
		// The gateway cancel already succeeded while the ledger write
		// failed. Surface for manual reconciliation, never auto-retry.
		return nil, &ReconciliationError{Err: err}
	}

	s.logger.Info().
		Str("order_id", orderID).
		Int64("refund_amount", amount).
		Bool("coupon_restored", restored).
		Msg("payment refunded")

	return &RefundResult{OrderID: orderID, RefundAmount: amount, CouponRestored: restored}, nil
}
