package swift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://swift.drift.trade"
	}
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

// SubmitError is a non-2xx response from the Swift service.
type SubmitError struct {
	StatusCode int
	Body       []byte
}

func (e *SubmitError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("swift http %d", e.StatusCode)
	}
	return fmt.Sprintf("swift http %d: %s", e.StatusCode, b)
}

type SubmitResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// SubmitOrder posts a signed order to /orders. There is no retry.
func (c *Client) SubmitOrder(ctx context.Context, order *SignedOrder) (*SubmitResponse, error) {
	if order == nil {
		return nil, fmt.Errorf("swift: order is nil")
	}
	return c.post(ctx, "/orders", order.Request())
}

// SubmitDepositTrade posts a signed deposit tx (base64) together with a signed order.
func (c *Client) SubmitDepositTrade(ctx context.Context, depositTx string, order *SignedOrder) (*SubmitResponse, error) {
	if order == nil {
		return nil, fmt.Errorf("swift: order is nil")
	}
	if depositTx == "" {
		return nil, fmt.Errorf("swift: deposit tx is empty")
	}
	return c.post(ctx, "/depositTrade", DepositTradeRequest{
		DepositTx:  depositTx,
		SwiftOrder: order.Request(),
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) (*SubmitResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("swift: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swift: request failed: %w", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &SubmitError{StatusCode: res.StatusCode, Body: respBody}
	}

	out := &SubmitResponse{StatusCode: res.StatusCode}
	if json.Valid(respBody) {
		out.Body = respBody
	} else if len(respBody) > 0 {
		quoted, _ := json.Marshal(string(respBody))
		out.Body = quoted
	}
	return out, nil
}
