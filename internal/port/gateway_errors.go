package port

import "errors"

// Gateway failure classes. ErrGatewayAuth and ErrGatewayLookup wrap the
// gateway's own message verbatim for operator diagnosis; the message is
// never parsed for control flow.
var (
	ErrGatewayAuth        = errors.New("gateway authentication failed")
	ErrGatewayLookup      = errors.New("gateway payment lookup failed")
	ErrGatewayUnavailable = errors.New("gateway unreachable")
)
