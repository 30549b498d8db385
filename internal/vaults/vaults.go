// Package vaults reports Drift vault APYs joined with their configs.
package vaults

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Periods lists APY windows in print order. 90d is the most reliable;
// short windows annualize noise.
var Periods = []string{"90d", "7d", "30d", "180d", "365d"}

type Config struct {
	Name   string `json:"name"`
	Pubkey string `json:"vaultPubkeyString"`
}

type Stats struct {
	APYs           map[string]float64 `json:"apys"`
	MaxDrawdownPct float64            `json:"maxDrawdownPct"`
}

// Report is one vault with data in both feeds.
type Report struct {
	Name           string             `json:"name"`
	Pubkey         string             `json:"pubkey"`
	APYs           map[string]float64 `json:"apys"`
	MaxDrawdownPct float64            `json:"max_drawdown_pct"`
}

type Client struct {
	ConfigsURL string
	APYsURL    string
	HTTP       *http.Client
}

func NewClient(configsURL, apysURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		ConfigsURL: strings.TrimSpace(configsURL),
		APYsURL:    strings.TrimSpace(apysURL),
		HTTP:       &http.Client{Timeout: timeout},
	}
}

// Reports fetches both feeds concurrently and keeps config order. Configs
// without APY data are skipped.
func (c *Client) Reports(ctx context.Context) ([]Report, error) {
	var (
		configs []Config
		apys    map[string]Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.get(gctx, c.ConfigsURL, &configs) })
	g.Go(func() error { return c.get(gctx, c.APYsURL, &apys) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Report, 0, len(configs))
	for _, cfg := range configs {
		data, ok := apys[cfg.Pubkey]
		if !ok {
			continue
		}
		out = append(out, Report{
			Name:           cfg.Name,
			Pubkey:         cfg.Pubkey,
			APYs:           data.APYs,
			MaxDrawdownPct: data.MaxDrawdownPct,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	if url == "" {
		return fmt.Errorf("vaults: url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("vaults: GET %s: %w", url, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("vaults: GET %s: http %d: %s", url, res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("vaults: decode %s: %w", url, err)
	}
	return nil
}

// Print writes the multi-line block per vault. Missing windows print as 0.00%.
func Print(w io.Writer, reports []Report) error {
	for _, r := range reports {
		if _, err := fmt.Fprintf(w, "\n%s (%s)\n", r.Name, r.Pubkey); err != nil {
			return err
		}
		for _, p := range Periods {
			label := fmt.Sprintf("%s APY:", p)
			if _, err := fmt.Fprintf(w, "  %-9s %.2f%%\n", label, r.APYs[p]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  Max Drawdown: %.2f%%\n", r.MaxDrawdownPct); err != nil {
			return err
		}
	}
	return nil
}
