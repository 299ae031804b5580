// Package rest is the reference Exchange Adapter implementation: a
// generic CEX-style REST + WebSocket integration satisfying
// internal/adapter.Adapter. Concrete exchanges (Binance, Poloniex, ...)
// would each be their own thin package wrapping this one, or their own
// implementation of the same interface.
//
// Grounded on the teacher's internal/exchange/client.go: resty-based
// HTTP client, per-category rate limiting, automatic retry on 5xx,
// dry-run support.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the REST transport for one exchange connection.
type Client struct {
	http   *resty.Client
	auth   *Auth
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// NewClient builds a rate-limited, retrying REST client against
// baseURL.
func NewClient(baseURL string, auth *Auth, rl *RateLimiter, dryRun bool, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient, auth: auth, rl: rl, dryRun: dryRun, logger: logger}
}

// GetBook fetches the current order book for symbol.
func (c *Client) GetBook(ctx context.Context, symbol string) (*BookSnapshot, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	var result BookSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get("/book")
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get book: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// PlaceOrder submits req for immediate execution.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would place order", "symbol", req.Symbol, "side", req.Side, "quantity", req.Quantity)
		return &OrderAck{Accepted: true, OrderID: "dry-run-" + req.ClientID}, nil
	}

	if err := c.rl.Order.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	headers, err := c.auth.Headers(http.MethodPost, "/orders", string(body))
	if err != nil {
		return nil, fmt.Errorf("auth headers: %w", err)
	}

	var ack OrderAck
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(req).
		SetResult(&ack).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("place order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &ack, nil
}

// CancelOrder cancels a previously placed order by client order id.
func (c *Client) CancelOrder(ctx context.Context, clientID string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel order", "client_order_id", clientID)
		return nil
	}

	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}

	path := "/orders/" + clientID
	headers, err := c.auth.Headers(http.MethodDelete, path, "")
	if err != nil {
		return fmt.Errorf("auth headers: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Delete(path)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
