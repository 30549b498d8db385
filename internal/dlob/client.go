package dlob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceVAMM marks levels backed by the protocol AMM rather than resting orders.
const SourceVAMM = "vamm"

var ErrNoLiquidity = errors.New("dlob: missing bid/ask data")

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://dlob.drift.trade"
	}
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

// Level is one price level. Price is in PRICE_PRECISION (1e6) units.
type Level struct {
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
	Source string          `json:"source,omitempty"`
}

type L2 struct {
	MarketName string  `json:"marketName,omitempty"`
	Slot       uint64  `json:"slot,omitempty"`
	Bids       []Level `json:"bids"`
	Asks       []Level `json:"asks"`
}

// L2 fetches an aggregated orderbook snapshot, e.g. /l2?marketName=SOL-PERP&depth=10.
func (c *Client) L2(ctx context.Context, marketName string, depth int) (*L2, error) {
	q := url.Values{}
	q.Set("marketName", marketName)
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/l2?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dlob: request failed: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dlob: unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var book L2
	if err := json.Unmarshal(body, &book); err != nil {
		return nil, fmt.Errorf("dlob: decode l2: %w", err)
	}
	if book.MarketName == "" {
		book.MarketName = marketName
	}
	return &book, nil
}

// FirstNonAMM returns the first level whose source is not the vAMM.
func FirstNonAMM(levels []Level) (Level, bool) {
	for _, l := range levels {
		if l.Source != SourceVAMM {
			return l, true
		}
	}
	return Level{}, false
}

// BestBidAsk returns the best non-vAMM bid and ask prices in PRICE_PRECISION.
func (b *L2) BestBidAsk() (bid, ask int64, err error) {
	bl, okBid := FirstNonAMM(b.Bids)
	al, okAsk := FirstNonAMM(b.Asks)
	if !okBid || !okAsk {
		return 0, 0, ErrNoLiquidity
	}
	return bl.Price.IntPart(), al.Price.IntPart(), nil
}
