package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/daho-labs/payflow/internal/core/domain"
	"github.com/daho-labs/payflow/internal/port"
)

// MySQLLedger implements port.LedgerGateway. Every mutating use case is a
// single transaction across the order row and the coupon-hold row, so a
// crash can never leave one applied without the other. Conflicting
// transitions serialize on InnoDB row locks.
type MySQLLedger struct {
	db *sql.DB
}

func NewMySQLLedger(db *sql.DB) *MySQLLedger {
	return &MySQLLedger{db: db}
}

func (m *MySQLLedger) CreateOrder(ctx context.Context, draft domain.OrderDraft) (*port.CreateResult, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var price int64
	err = tx.QueryRowContext(ctx, `
		SELECT price FROM contents WHERE id = ?`, draft.ContentID,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrItemInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}

	var discount int64
	if draft.CouponID != "" {
		// FOR UPDATE locks the hold row; two concurrent creations racing
		// for the same coupon serialize here and the loser sees it
		// consumed.
		err = tx.QueryRowContext(ctx, `
			SELECT discount_amount FROM coupon_holds
			WHERE id = ? AND buyer_id = ? AND consumed_by IS NULL
			FOR UPDATE`,
			draft.CouponID, draft.BuyerID,
		).Scan(&discount)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, port.ErrCouponUnavailable
		}
		if err != nil {
			return nil, fmt.Errorf("query coupon hold: %w", err)
		}
	}

	orderID := uuid.NewString()

	if draft.CouponID != "" {
		result, err := tx.ExecContext(ctx, `
			UPDATE coupon_holds
			SET consumed_by = ?, used_at = NOW()
			WHERE id = ? AND consumed_by IS NULL`,
			orderID, draft.CouponID,
		)
		if err != nil {
			return nil, fmt.Errorf("consume coupon: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return nil, port.ErrCouponUnavailable
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
			(id, merchant_ref, buyer_id, content_id, amount, coupon_id,
			 status, pay_method, pg_provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		orderID, draft.MerchantRef, draft.BuyerID, draft.ContentID,
		draft.Amount, nullable(draft.CouponID),
		domain.OrderStatusPending, draft.PayMethod, draft.PGProvider,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &port.CreateResult{OrderID: orderID, DiscountApplied: discount}, nil
}

func (m *MySQLLedger) CompleteOrder(ctx context.Context, orderID, txID, payMethod, pgProvider string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, tx_id = ?, pay_method = ?, pg_provider = ?,
		    webhook_verified_at = NOW(), updated_at = NOW()
		WHERE id = ? AND status = ?`,
		domain.OrderStatusCompleted, txID, payMethod, pgProvider,
		orderID, domain.OrderStatusPending,
	)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return m.explainMissedUpdate(ctx, orderID, domain.OrderStatusCompleted)
	}
	return nil
}

func (m *MySQLLedger) RefundOrder(ctx context.Context, orderID, buyerID string, amount int64, reason string) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, refund_amount = ?, refund_reason = ?, updated_at = NOW()
		WHERE id = ? AND buyer_id = ? AND status = ?`,
		domain.OrderStatusRefunded, amount, reason,
		orderID, buyerID, domain.OrderStatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("refund order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var owner string
		var status domain.OrderStatus
		err := tx.QueryRowContext(ctx, `
			SELECT buyer_id, status FROM orders WHERE id = ?`, orderID,
		).Scan(&owner, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return false, port.ErrOrderNotFound
		}
		if err != nil {
			return false, fmt.Errorf("query order: %w", err)
		}
		if owner != buyerID {
			return false, port.ErrWrongOwner
		}
		if status == domain.OrderStatusRefunded {
			return false, port.ErrAlreadyRefunded
		}
		return false, fmt.Errorf("%w: order is %s", port.ErrStateConflict, status)
	}

	restored, err := releaseCoupon(ctx, tx, orderID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return restored, nil
}

func (m *MySQLLedger) MarkFailed(ctx context.Context, orderID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND status = ?`,
		domain.OrderStatusFailed, orderID, domain.OrderStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return m.explainMissedUpdate(ctx, orderID, domain.OrderStatusFailed)
	}

	// A failed order releases its coupon hold in the same transaction.
	if _, err := releaseCoupon(ctx, tx, orderID); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *MySQLLedger) OrderByMerchantRef(ctx context.Context, merchantRef string) (*domain.Order, error) {
	return m.scanOrder(m.db.QueryRowContext(ctx,
		selectOrder+` WHERE merchant_ref = ?`, merchantRef))
}

func (m *MySQLLedger) OrderByID(ctx context.Context, orderID, buyerID string) (*domain.Order, error) {
	order, err := m.scanOrder(m.db.QueryRowContext(ctx,
		selectOrder+` WHERE id = ?`, orderID))
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, port.ErrWrongOwner
	}
	return order, nil
}

const selectOrder = `
	SELECT id, merchant_ref, buyer_id, content_id, amount,
	       COALESCE(coupon_id, ''), status, COALESCE(tx_id, ''),
	       COALESCE(pay_method, ''), COALESCE(pg_provider, ''),
	       COALESCE(refund_amount, 0), COALESCE(refund_reason, ''),
	       created_at, updated_at, webhook_verified_at
	FROM orders`

func (m *MySQLLedger) scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	var verified sql.NullTime
	err := row.Scan(
		&o.ID, &o.MerchantRef, &o.BuyerID, &o.ContentID, &o.Amount,
		&o.CouponID, &o.Status, &o.TxID,
		&o.PayMethod, &o.PGProvider,
		&o.RefundAmount, &o.RefundReason,
		&o.CreatedAt, &o.UpdatedAt, &verified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if verified.Valid {
		o.WebhookVerifiedAt = &verified.Time
	}
	return &o, nil
}

// explainMissedUpdate turns a zero-rows guarded UPDATE into the sentinel
// the caller can act on.
func (m *MySQLLedger) explainMissedUpdate(ctx context.Context, orderID string, wanted domain.OrderStatus) error {
	var status domain.OrderStatus
	err := m.db.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = ?`, orderID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("query order: %w", err)
	}
	if status == wanted && wanted == domain.OrderStatusCompleted {
		return port.ErrAlreadyCompleted
	}
	return fmt.Errorf("%w: order is %s", port.ErrStateConflict, status)
}

func releaseCoupon(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE coupon_holds
		SET consumed_by = NULL, used_at = NULL
		WHERE consumed_by = ?`, orderID,
	)
	if err != nil {
		return false, fmt.Errorf("release coupon: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
