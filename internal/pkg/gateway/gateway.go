package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kedesh/marketplace/internal/pkg/env"
)

const (
	orderEndpoint       = ""
	orderStatusEndpoint = "order-status"

	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
)

// ErrOrderRejected is a business rejection from the provider: the order was
// understood and refused, so there is nothing to retry.
var ErrOrderRejected = errors.New("gateway rejected order")

// ErrUnavailable is returned after the bounded retry budget is exhausted on
// network or timeout failures.
var ErrUnavailable = errors.New("gateway unavailable")

// Config carries the provider credentials and endpoints. It is built once at
// startup and passed by reference; nothing in this package reads ambient
// global state.
type Config struct {
	BaseURL    string
	APIKey     string
	SecretKey  string
	AccountID  string
	WebhookURL string
	Timeout    time.Duration
}

// ConfigFromEnv builds the gateway configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimRight(env.GetEnv("GATEWAY_BASE_URL", ""), "/"),
		APIKey:     strings.TrimSpace(env.GetEnv("GATEWAY_API_KEY", "")),
		SecretKey:  strings.TrimSpace(env.GetEnv("GATEWAY_SECRET_KEY", "")),
		AccountID:  strings.TrimSpace(env.GetEnv("GATEWAY_ACCOUNT_ID", "")),
		WebhookURL: strings.TrimSpace(env.GetEnv("GATEWAY_WEBHOOK_URL", "")),
		Timeout:    defaultTimeout,
	}
}

// Client wraps the outbound calls to the mobile-money provider with a bounded
// retry on transient failures.
type Client struct {
	cfg        Config
	HTTPClient *http.Client
}

// NewClient creates a gateway client from an explicit configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// OrderRequest is the order-creation payload. Metadata carries the internal
// payment id so the webhook can be matched back to the ledger row.
type OrderRequest struct {
	BuyerEmail string          `json:"buyer_email"`
	BuyerName  string          `json:"buyer_name"`
	BuyerPhone string          `json:"buyer_phone"`
	Amount     decimal.Decimal `json:"amount"`
	PaymentID  string          `json:"-"`
}

type orderWire struct {
	BuyerEmail string            `json:"buyer_email"`
	BuyerName  string            `json:"buyer_name"`
	BuyerPhone string            `json:"buyer_phone"`
	Amount     decimal.Decimal   `json:"amount"`
	AccountID  string            `json:"account_id"`
	WebhookURL string            `json:"webhook_url"`
	Metadata   map[string]string `json:"metadata"`
	APIKey     string            `json:"api_key"`
	SecretKey  string            `json:"secret_key"`
}

// OrderResponse is the provider's answer to order creation.
type OrderResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// OrderStatus is the provider's authoritative view of an order, used to
// cross-check webhook notifications.
type OrderStatus struct {
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus string          `json:"payment_status"`
}

// CreateOrder submits a new payment order. A provider-side business rejection
// surfaces ErrOrderRejected; exhausted transient retries surface
// ErrUnavailable.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	wire := orderWire{
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		BuyerPhone: req.BuyerPhone,
		Amount:     req.Amount,
		AccountID:  c.cfg.AccountID,
		WebhookURL: c.cfg.WebhookURL,
		Metadata:   map[string]string{"payment_id": req.PaymentID},
		APIKey:     c.cfg.APIKey,
		SecretKey:  c.cfg.SecretKey,
	}

	var resp OrderResponse
	if err := c.postWithRetry(ctx, orderEndpoint, wire, &resp); err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.Status, "error") {
		return &resp, fmt.Errorf("%w: %s", ErrOrderRejected, resp.Message)
	}
	return &resp, nil
}

// QueryOrderStatus asks the provider for its authoritative order state.
func (c *Client) QueryOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New("order id is required")
	}
	body := map[string]string{
		"order_id":   orderID,
		"api_key":    c.cfg.APIKey,
		"secret_key": c.cfg.SecretKey,
	}
	var status OrderStatus
	if err := c.postWithRetry(ctx, orderStatusEndpoint, body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// postWithRetry POSTs JSON with exponential backoff on transient failures.
// Non-2xx responses and malformed bodies are not retried.
func (c *Client) postWithRetry(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	url := c.cfg.BaseURL
	if endpoint != "" {
		url = c.cfg.BaseURL + "/" + endpoint
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = c.post(ctx, url, payload, out)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) post(ctx context.Context, url string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &transientError{err: err}
	}
	if resp.StatusCode >= 500 {
		return &transientError{err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid gateway response: %w", err)
	}
	return nil
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
