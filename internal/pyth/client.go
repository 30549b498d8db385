package pyth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client reads latest prices from a Pyth Hermes endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://hermes.pyth.network"
	}
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

type Price struct {
	FeedID      string
	Price       decimal.Decimal
	Conf        decimal.Decimal
	PublishTime time.Time
}

type rawPrice struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type latestResponse struct {
	Parsed []struct {
		ID    string   `json:"id"`
		Price rawPrice `json:"price"`
	} `json:"parsed"`
}

func normalizeID(id string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(id)), "0x")
}

// SameFeed compares feed ids ignoring case and a 0x prefix.
func SameFeed(a, b string) bool { return normalizeID(a) == normalizeID(b) }

// LatestPrices fetches the latest parsed price for every feed id.
// Every requested feed must be present in the response.
func (c *Client) LatestPrices(ctx context.Context, feedIDs ...string) (map[string]Price, error) {
	if len(feedIDs) == 0 {
		return nil, fmt.Errorf("pyth: at least one feed id is required")
	}

	q := url.Values{}
	for _, id := range feedIDs {
		q.Add("ids[]", normalizeID(id))
	}
	q.Set("parsed", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v2/updates/price/latest?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pyth: request failed: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pyth: unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out latestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("pyth: decode response: %w", err)
	}

	prices := make(map[string]Price, len(out.Parsed))
	for _, p := range out.Parsed {
		mantissa, err := strconv.ParseInt(p.Price.Price, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pyth: invalid price %q: %w", p.Price.Price, err)
		}
		conf, _ := strconv.ParseInt(p.Price.Conf, 10, 64)
		id := normalizeID(p.ID)
		prices[id] = Price{
			FeedID:      id,
			Price:       decimal.New(mantissa, p.Price.Expo),
			Conf:        decimal.New(conf, p.Price.Expo),
			PublishTime: time.Unix(p.Price.PublishTime, 0).UTC(),
		}
	}

	for _, id := range feedIDs {
		if _, ok := prices[normalizeID(id)]; !ok {
			return nil, fmt.Errorf("pyth: feed %s missing from response", id)
		}
	}
	return prices, nil
}

// LatestPrice is LatestPrices for a single feed.
func (c *Client) LatestPrice(ctx context.Context, feedID string) (Price, error) {
	prices, err := c.LatestPrices(ctx, feedID)
	if err != nil {
		return Price{}, err
	}
	p := prices[normalizeID(feedID)]
	if !p.Price.IsPositive() {
		return Price{}, fmt.Errorf("pyth: non-positive price for feed %s", feedID)
	}
	return p, nil
}
