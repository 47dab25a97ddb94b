package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/daho-labs/payflow/internal/core/domain"
	"github.com/daho-labs/payflow/internal/port"
)

// envelope is the gateway's uniform response wrapper. A non-zero code means
// the operation was rejected; message is passed through verbatim and never
// parsed.
type envelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

// Client talks to the payment gateway's REST API. It is stateless; tokens
// are exchanged per call and never cached.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return "", fmt.Errorf("%w: credentials not configured", port.ErrGatewayAuth)
	}

	payload := map[string]string{
		"imp_key":    c.apiKey,
		"imp_secret": c.apiSecret,
	}

	var env envelope
	if err := c.post(ctx, "/users/getToken", "", payload, &env); err != nil {
		return "", err
	}
	if env.Code != 0 {
		return "", fmt.Errorf("%w: %s", port.ErrGatewayAuth, env.Message)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Response, &resp); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", port.ErrGatewayUnavailable, err)
	}
	return resp.AccessToken, nil
}

func (c *Client) FetchPayment(ctx context.Context, txID, token string) (*domain.GatewayPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+txID, nil)
	if err != nil {
		return nil, fmt.Errorf("build payment lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var env envelope
	if err := c.do(req, &env); err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrGatewayLookup, env.Message)
	}

	var resp struct {
		ImpUID      string `json:"imp_uid"`
		MerchantUID string `json:"merchant_uid"`
		Amount      int64  `json:"amount"`
		Status      string `json:"status"`
		PayMethod   string `json:"pay_method"`
		PGProvider  string `json:"pg_provider"`
	}
	if err := json.Unmarshal(env.Response, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode payment response: %v", port.ErrGatewayUnavailable, err)
	}

	return &domain.GatewayPayment{
		TxID:        resp.ImpUID,
		MerchantRef: resp.MerchantUID,
		Amount:      resp.Amount,
		Status:      resp.Status,
		PayMethod:   resp.PayMethod,
		PGProvider:  resp.PGProvider,
	}, nil
}

func (c *Client) CancelPayment(ctx context.Context, txID string, amount int64, reason, token string) (domain.CancelResult, error) {
	payload := map[string]interface{}{
		"imp_uid": txID,
		"amount":  amount,
		"reason":  reason,
	}

	var env envelope
	if err := c.post(ctx, "/payments/cancel", token, payload, &env); err != nil {
		return domain.CancelResult{}, err
	}
	if env.Code != 0 {
		// A rejected cancel is a business outcome the caller inspects,
		// not an error.
		return domain.CancelResult{Success: false, Message: env.Message}, nil
	}
	return domain.CancelResult{Success: true}, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload interface{}, env *envelope) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, env)
}

func (c *Client) do(req *http.Request, env *envelope) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return fmt.Errorf("%w: decode response: %v", port.ErrGatewayUnavailable, err)
	}
	return nil
}
