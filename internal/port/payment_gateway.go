package port

import (
	"context"

	"github.com/daho-labs/payflow/internal/core/domain"
)

// PaymentGateway wraps the external payment processor. Implementations are
// stateless; retries are the caller's concern.
type PaymentGateway interface {
	// Authenticate exchanges configured credentials for a short-lived
	// access token. Tokens are single-use-per-call; no caching is assumed.
	Authenticate(ctx context.Context) (string, error)

	// FetchPayment retrieves the gateway's record for a transaction id.
	FetchPayment(ctx context.Context, txID, token string) (*domain.GatewayPayment, error)

	// CancelPayment requests a (partial) cancellation. A rejected cancel is
	// reported through CancelResult, not through the error return.
	CancelPayment(ctx context.Context, txID string, amount int64, reason, token string) (domain.CancelResult, error)
}
