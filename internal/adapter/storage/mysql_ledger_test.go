package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/daho-labs/payflow/internal/core/domain"
	"github.com/daho-labs/payflow/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/payflow?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := RunMigrations(db, "./migrations"); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	return db
}

func seedContent(t *testing.T, db *sql.DB) string {
	t.Helper()
	contentID := uuid.NewString()
	_, err := db.Exec(`INSERT INTO contents (id, title, price) VALUES (?, 'test content', 10000)`, contentID)
	if err != nil {
		t.Fatalf("seed content: %v", err)
	}
	return contentID
}

func seedCoupon(t *testing.T, db *sql.DB, buyerID string) string {
	t.Helper()
	couponID := uuid.NewString()
	_, err := db.Exec(`INSERT INTO coupon_holds (id, buyer_id, discount_amount) VALUES (?, ?, 1000)`, couponID, buyerID)
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return couponID
}

func testDraft(contentID, couponID string) domain.OrderDraft {
	return domain.OrderDraft{
		BuyerID:     "test-buyer",
		ContentID:   contentID,
		Amount:      10000,
		PayMethod:   "card",
		TxID:        "imp-" + uuid.NewString(),
		MerchantRef: "mref-" + uuid.NewString(),
		PGProvider:  "portone",
		CouponID:    couponID,
	}
}

func TestCreateOrder_ConsumesCoupon(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	contentID := seedContent(t, db)
	couponID := seedCoupon(t, db, "test-buyer")

	res, err := ledger.CreateOrder(ctx, testDraft(contentID, couponID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if res.DiscountApplied != 1000 {
		t.Errorf("expected discount 1000, got %d", res.DiscountApplied)
	}

	var consumedBy string
	db.QueryRow(`SELECT consumed_by FROM coupon_holds WHERE id = ?`, couponID).Scan(&consumedBy)
	if consumedBy != res.OrderID {
		t.Errorf("expected coupon consumed by %s, got %q", res.OrderID, consumedBy)
	}

	// Same coupon again: unavailable, and no order row leaks from the
	// aborted transaction.
	draft := testDraft(contentID, couponID)
	_, err = ledger.CreateOrder(ctx, draft)
	if !errors.Is(err, port.ErrCouponUnavailable) {
		t.Fatalf("expected ErrCouponUnavailable, got %v", err)
	}
	var count int
	db.QueryRow(`SELECT COUNT(*) FROM orders WHERE merchant_ref = ?`, draft.MerchantRef).Scan(&count)
	if count != 0 {
		t.Error("aborted creation left an order row")
	}
}

func TestCreateOrder_InvalidItem(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ledger := NewMySQLLedger(db)
	_, err := ledger.CreateOrder(context.Background(), testDraft(uuid.NewString(), ""))
	if !errors.Is(err, port.ErrItemInvalid) {
		t.Errorf("expected ErrItemInvalid, got %v", err)
	}
}

func TestCompleteOrder_Guard(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	contentID := seedContent(t, db)

	res, err := ledger.CreateOrder(ctx, testDraft(contentID, ""))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if err := ledger.CompleteOrder(ctx, res.OrderID, "imp-x", "card", "portone"); err != nil {
		t.Fatalf("CompleteOrder failed: %v", err)
	}

	order, err := ledger.OrderByID(ctx, res.OrderID, "test-buyer")
	if err != nil {
		t.Fatalf("OrderByID failed: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected completed, got %s", order.Status)
	}
	if order.WebhookVerifiedAt == nil {
		t.Error("expected webhook_verified_at set")
	}

	err = ledger.CompleteOrder(ctx, res.OrderID, "imp-x", "card", "portone")
	if !errors.Is(err, port.ErrAlreadyCompleted) {
		t.Errorf("expected ErrAlreadyCompleted, got %v", err)
	}

	err = ledger.CompleteOrder(ctx, uuid.NewString(), "imp-x", "card", "portone")
	if !errors.Is(err, port.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestRefundOrder_RestoresCoupon(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	contentID := seedContent(t, db)
	couponID := seedCoupon(t, db, "test-buyer")

	res, err := ledger.CreateOrder(ctx, testDraft(contentID, couponID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if err := ledger.CompleteOrder(ctx, res.OrderID, "imp-x", "card", "portone"); err != nil {
		t.Fatalf("CompleteOrder failed: %v", err)
	}

	restored, err := ledger.RefundOrder(ctx, res.OrderID, "test-buyer", 10000, "test refund")
	if err != nil {
		t.Fatalf("RefundOrder failed: %v", err)
	}
	if !restored {
		t.Error("expected coupon restored")
	}

	var consumedBy sql.NullString
	db.QueryRow(`SELECT consumed_by FROM coupon_holds WHERE id = ?`, couponID).Scan(&consumedBy)
	if consumedBy.Valid {
		t.Errorf("expected coupon released, still consumed by %q", consumedBy.String)
	}

	_, err = ledger.RefundOrder(ctx, res.OrderID, "test-buyer", 10000, "test refund")
	if !errors.Is(err, port.ErrAlreadyRefunded) {
		t.Errorf("expected ErrAlreadyRefunded, got %v", err)
	}
}

func TestRefundOrder_WrongOwnerAndState(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	contentID := seedContent(t, db)

	res, err := ledger.CreateOrder(ctx, testDraft(contentID, ""))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	_, err = ledger.RefundOrder(ctx, res.OrderID, "another-buyer", 10000, "r")
	if !errors.Is(err, port.ErrWrongOwner) {
		t.Errorf("expected ErrWrongOwner, got %v", err)
	}

	// Still pending: refund is a state conflict.
	_, err = ledger.RefundOrder(ctx, res.OrderID, "test-buyer", 10000, "r")
	if !errors.Is(err, port.ErrStateConflict) {
		t.Errorf("expected ErrStateConflict, got %v", err)
	}
}

func TestMarkFailed_ReleasesCoupon(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	contentID := seedContent(t, db)
	couponID := seedCoupon(t, db, "test-buyer")

	res, err := ledger.CreateOrder(ctx, testDraft(contentID, couponID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if err := ledger.MarkFailed(ctx, res.OrderID); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	order, err := ledger.OrderByID(ctx, res.OrderID, "test-buyer")
	if err != nil {
		t.Fatalf("OrderByID failed: %v", err)
	}
	if order.Status != domain.OrderStatusFailed {
		t.Errorf("expected failed, got %s", order.Status)
	}

	var consumedBy sql.NullString
	db.QueryRow(`SELECT consumed_by FROM coupon_holds WHERE id = ?`, couponID).Scan(&consumedBy)
	if consumedBy.Valid {
		t.Error("expected coupon released after failed order")
	}
}

func TestCreateOrder_ConcurrentCouponRace(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	ledger := NewMySQLLedger(db)
	contentID := seedContent(t, db)
	couponID := seedCoupon(t, db, "test-buyer")

	const racers = 10
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.CreateOrder(ctx, testDraft(contentID, couponID)); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 winner for the coupon, got %d", successCount.Load())
	}
}
