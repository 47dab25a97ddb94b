package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/daho-labs/payflow/internal/core/domain"
	"github.com/daho-labs/payflow/internal/core/service"
	"github.com/daho-labs/payflow/internal/port"
)

// PaymentService is the slice of the core the HTTP layer needs.
type PaymentService interface {
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (*port.CreateResult, error)
	ConfirmPayment(ctx context.Context, txID string) (*service.ConfirmResult, error)
	RefundPayment(ctx context.Context, buyerID, orderID string, amount int64, reason string) (*service.RefundResult, error)
}

type PaymentHandler struct {
	payments PaymentService
	logger   zerolog.Logger
}

func NewPaymentHandler(payments PaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type CreateOrderRequest struct {
	ItemID      string `json:"item_id"`
	Amount      int64  `json:"amount"`
	PayMethod   string `json:"pay_method"`
	TxID        string `json:"tx_id"`
	MerchantRef string `json:"merchant_ref"`
	Provider    string `json:"provider"`
	CouponRef   string `json:"coupon_ref,omitempty"`
}

type CreateOrderResponse struct {
	Success         bool   `json:"success"`
	OrderID         string `json:"order_id"`
	DiscountApplied int64  `json:"discount_applied"`
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := BuyerID(r.Context())
	if buyerID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.payments.CreateOrder(r.Context(), domain.OrderDraft{
		BuyerID:     buyerID,
		ContentID:   req.ItemID,
		Amount:      req.Amount,
		PayMethod:   req.PayMethod,
		TxID:        req.TxID,
		MerchantRef: req.MerchantRef,
		PGProvider:  req.Provider,
		CouponID:    req.CouponRef,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateOrderResponse{
		Success:         true,
		OrderID:         res.OrderID,
		DiscountApplied: res.DiscountApplied,
	})
}

type ConfirmPaymentRequest struct {
	TxID        string `json:"tx_id"`
	MerchantRef string `json:"merchant_ref"`
	Status      string `json:"status"`
}

type ConfirmPaymentResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message,omitempty"`
}

// ConfirmPayment is the gateway webhook. No buyer session exists here: the
// caller is trusted only as far as the payment it names can be fetched and
// verified from the gateway itself. Deliveries are at-least-once.
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.TxID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tx_id is required"})
		return
	}

	res, err := h.payments.ConfirmPayment(r.Context(), req.TxID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ConfirmPaymentResponse{Success: true, OrderID: res.OrderID}
	if res.AlreadyProcessed {
		resp.Message = "already processed"
	}
	writeJSON(w, http.StatusOK, resp)
}

type RefundPaymentRequest struct {
	OrderID      string `json:"order_id"`
	RefundAmount int64  `json:"refund_amount"`
	RefundReason string `json:"refund_reason"`
}

type RefundPaymentResponse struct {
	Success        bool   `json:"success"`
	OrderID        string `json:"order_id"`
	RefundAmount   int64  `json:"refund_amount"`
	CouponRestored bool   `json:"coupon_restored"`
	Message        string `json:"message,omitempty"`
}

func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	buyerID := BuyerID(r.Context())
	if buyerID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var req RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var missing []string
	if req.OrderID == "" {
		missing = append(missing, "order_id")
	}
	if req.RefundAmount == 0 {
		missing = append(missing, "refund_amount")
	}
	if req.RefundReason == "" {
		missing = append(missing, "refund_reason")
	}
	if len(missing) > 0 {
		h.writeError(w, r, &service.ValidationError{Fields: missing})
		return
	}

	res, err := h.payments.RefundPayment(r.Context(), buyerID, req.OrderID, req.RefundAmount, req.RefundReason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := RefundPaymentResponse{
		Success:        true,
		OrderID:        res.OrderID,
		RefundAmount:   res.RefundAmount,
		CouponRestored: res.CouponRestored,
	}
	if res.AlreadyRefunded {
		resp.Message = "already refunded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Success              bool   `json:"success"`
	Error                string `json:"error"`
	ManualReconciliation bool   `json:"manual_reconciliation,omitempty"`
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
		return
	}

	var recErr *service.ReconciliationError
	if errors.As(err, &recErr) {
		// The gateway-side effect may already be applied. Surface the
		// straddling failure to the caller; never retried here.
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("ledger write failed after gateway effect")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:                "ledger update failed, contact support",
			ManualReconciliation: true,
		})
		return
	}

	switch {
	case errors.Is(err, port.ErrOrderNotFound), errors.Is(err, port.ErrWrongOwner):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})

	case errors.Is(err, service.ErrAmountMismatch):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrPaymentNotCompleted),
		errors.Is(err, service.ErrRefundNotAllowed),
		errors.Is(err, service.ErrRefundAmountInvalid),
		errors.Is(err, service.ErrRefundRefused),
		errors.Is(err, port.ErrStateConflict),
		errors.Is(err, port.ErrCouponUnavailable),
		errors.Is(err, port.ErrItemInvalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, port.ErrGatewayAuth),
		errors.Is(err, port.ErrGatewayLookup),
		errors.Is(err, port.ErrGatewayUnavailable):
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("gateway call failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})

	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
