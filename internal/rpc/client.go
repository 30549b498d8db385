package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client is a Solana JSON-RPC client. Transport failures and 429/5xx answers
// are retried with exponential backoff; JSON-RPC errors are returned as
// *RPCError without retrying.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	commitment   string
	limiter      *rate.Limiter
	nextID       atomic.Uint64
	logger       *logrus.Logger
}

type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Commitment   string

	// RateLimit caps outgoing requests per second. Zero disables it.
	RateLimit float64

	Logger *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		commitment:   cfg.Commitment,
		logger:       cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		burst := max(1, int(cfg.RateLimit))
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// retryableError marks HTTP failures worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Call invokes method and decodes the "result" member into result, which may
// be nil when the caller only needs success.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	var (
		raw     []byte
		lastErr error
		backoff = c.retryBackoff
	)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		raw, lastErr = c.post(ctx, body)
		if lastErr == nil {
			break
		}
		var re retryableError
		if !errors.As(lastErr, &re) {
			return lastErr
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if env.Error != nil {
		return env.Error
	}
	if result == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retryableError{fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, retryableError{errors.New("rate limited (429)")}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, retryableError{fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retryableError{fmt.Errorf("read response: %w", err)}
	}
	return b, nil
}

// commitmentOpt is the trailing config object most read methods accept.
func (c *Client) commitmentOpt(extra map[string]any) map[string]any {
	opt := map[string]any{"commitment": c.commitment}
	for k, v := range extra {
		opt[k] = v
	}
	return opt
}

// GetSlot returns the current slot at the client's commitment.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.Call(ctx, "getSlot", []any{c.commitmentOpt(nil)}, &slot); err != nil {
		return 0, fmt.Errorf("getSlot: %w", err)
	}
	return slot, nil
}

// GetAccountInfo fetches an account with base64 data. A missing account is
// (nil, nil).
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var res withContext[*accountValue]
	params := []any{address, c.commitmentOpt(map[string]any{"encoding": "base64"})}
	if err := c.Call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}
	if res.Value == nil {
		return nil, nil
	}
	return res.Value.info(), nil
}

// GetTokenAccountBalance returns the raw SPL token amount held by a token account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, address string) (*TokenAmount, error) {
	var res withContext[TokenAmount]
	if err := c.Call(ctx, "getTokenAccountBalance", []any{address, c.commitmentOpt(nil)}, &res); err != nil {
		return nil, fmt.Errorf("getTokenAccountBalance %s: %w", address, err)
	}
	return &res.Value, nil
}

// Bytes decodes base64 account data. Other encodings return ErrUnsupportedEncoding.
func (a *AccountInfo) Bytes() ([]byte, error) {
	if a.Encoding != "base64" {
		return nil, ErrUnsupportedEncoding
	}
	b, err := base64.StdEncoding.DecodeString(a.RawData)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return b, nil
}
