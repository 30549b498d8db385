package jupiter

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

const (
	defaultBaseURL = "https://api.jup.ag/swap/v1"
	defaultTimeout = 12 * time.Second

	// Error bodies past this are truncated.
	maxErrorBody = 4 << 10
)

// Client talks to the Jupiter swap API (quote and swap-transaction build).
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

// HTTPError is a non-2xx answer from Jupiter.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if b := strings.TrimSpace(string(e.Body)); b != "" {
		return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
	}
	return fmt.Sprintf("jupiter http %d", e.StatusCode)
}

// Quote requests a swap route. A 2xx body carrying an "error" field is
// returned as-is; QuoteResponse.Amounts rejects it.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	q, err := req.values()
	if err != nil {
		return nil, err
	}
	var out QuoteResponse
	if err := c.call(ctx, http.MethodGet, "/quote?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	return &out, nil
}

// Swap builds the unsigned transaction for a quote obtained from Quote.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	switch {
	case req.QuoteResponse == nil:
		return nil, fmt.Errorf("quoteResponse is required")
	case strings.TrimSpace(req.UserPublicKey) == "":
		return nil, fmt.Errorf("userPublicKey is required")
	}

	var out SwapResponse
	if err := c.call(ctx, http.MethodPost, "/swap", req, &out); err != nil {
		return nil, fmt.Errorf("jupiter swap: %w", err)
	}
	if out.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter swap: empty swapTransaction")
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &HTTPError{StatusCode: res.StatusCode, Body: b}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
