package domain

// GatewayPaymentStatus values reported by the payment gateway. Only "paid"
// permits a transition to completed; everything else is non-confirmation.
const GatewayStatusPaid = "paid"

// GatewayPayment is the gateway's record of a transaction, read-only to
// this service and treated as ground truth for amount and status.
type GatewayPayment struct {
	TxID        string
	MerchantRef string
	Amount      int64
	Status      string
	PayMethod   string
	PGProvider  string
}

// CancelResult is the gateway's answer to a cancel request. A rejected
// cancel is a business outcome, not a transport error.
type CancelResult struct {
	Success bool
	Message string
}
