package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"kchart_go/internal/infra"
)

// Client is the typed fetch boundary against the upstream market-data API.
// It normalizes transport and authentication and classifies failures; it
// never retries — callers decide.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker
}

// ClientConfig holds construction parameters for the upstream client.
type ClientConfig struct {
	BaseURL           string
	AuthToken         string
	Timeout           time.Duration
	MaxRequestsPerSec float64
}

// NewClient creates an upstream API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSec := cfg.MaxRequestsPerSec
	if perSec <= 0 {
		perSec = 5
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    infra.NewRateLimiter(3, perSec),
		breaker:    infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("upstream")),
	}
}

// OrderBook fetches the full order-book snapshot for an item.
func (c *Client) OrderBook(ctx context.Context, itemID string) (*OrderBookPayload, error) {
	var payload OrderBookPayload
	path := fmt.Sprintf("/v1/match/order-book/%s", url.PathEscape(itemID))
	if err := c.get(ctx, "order-book", path, nil, itemID, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TradeHistory fetches one page of executed trades for an item.
func (c *Client) TradeHistory(ctx context.Context, itemID string, page int) (*TradeHistoryPayload, error) {
	if page < 1 {
		page = 1
	}
	var payload TradeHistoryPayload
	path := fmt.Sprintf("/v1/match/trade-history/%s", url.PathEscape(itemID))
	query := url.Values{"page": {fmt.Sprintf("%d", page)}}
	if err := c.get(ctx, "trade-history", path, query, itemID, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// TradeSummary fetches the per-day summary window for an item.
// limitDays=1 yields just the current trading day.
func (c *Client) TradeSummary(ctx context.Context, itemID string, limitDays int) (*TradeSummaryPayload, error) {
	if limitDays < 1 {
		limitDays = 1
	}
	var payload TradeSummaryPayload
	path := fmt.Sprintf("/v1/match/trade-summary/%s", url.PathEscape(itemID))
	query := url.Values{"limit_days": {fmt.Sprintf("%d", limitDays)}}
	if err := c.get(ctx, "trade-summary", path, query, itemID, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// get performs one authenticated GET and decodes the envelope into out.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, itemID string, out any) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}

	c.limiter.Wait()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.breaker.RecordSuccess() // the upstream answered; the item just doesn't exist
		return &NotFoundError{Item: itemID}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.breaker.RecordFailure()
		return &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return &NetworkError{Op: op, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.breaker.RecordFailure()
		return &NetworkError{Op: op, Err: fmt.Errorf("malformed envelope: %w", err)}
	}
	if !env.IsSuccess {
		c.breaker.RecordSuccess()
		return &APIError{Op: op, Msg: env.Msg}
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		c.breaker.RecordFailure()
		return &NetworkError{Op: op, Err: fmt.Errorf("malformed payload: %w", err)}
	}

	c.breaker.RecordSuccess()
	return nil
}
