package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.mercadopago.com"
	defaultTimeout             = 10 * time.Second
	requestBodyReadLimit int64 = 1024
)

var errAccessTokenRequired = errors.New("mercado pago access token is required")

// Client wraps the Mercado Pago payments API. Webhook deliveries only carry a
// payment id, so the adapter calls GetPayment to load the authoritative state.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every lookup request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the Mercado Pago client given an access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(accessToken)
	if trimmed == "" {
		return nil, errAccessTokenRequired
	}

	client := &Client{
		accessToken: trimmed,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// Payment is the subset of the payments API response the platform consumes.
type Payment struct {
	ID                int64     `json:"id"`
	Status            string    `json:"status"`
	StatusDetail      string    `json:"status_detail"`
	ExternalReference string    `json:"external_reference"`
	TransactionAmount float64   `json:"transaction_amount"`
	CurrencyID        string    `json:"currency_id"`
	DateCreated       time.Time `json:"date_created"`
	DateApproved      *time.Time `json:"date_approved"`
	DateLastUpdated   *time.Time `json:"date_last_updated"`
}

// GetPayment loads the payment by id. A 404 maps to CodeNotFound so callers
// can treat unknown ids as unauthentic deliveries.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment lookup request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment lookup request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment %s not found", trimmed))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment lookup rejected")
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment lookup failed")
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment lookup response")
	}

	return &payment, nil
}
