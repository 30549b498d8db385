// Package volume reads 30-day maker/taker volume from Drift UserStats accounts.
package volume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/aman-zulfiqar/drift-toolkit/internal/drift"
	projectrpc "github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ErrNoUserStats means the authority has never traded on Drift.
var ErrNoUserStats = errors.New("volume: no user stats account")

type AccountReader interface {
	GetAccountInfo(ctx context.Context, address string) (*projectrpc.AccountInfo, error)
}

// Result is the volume of one authority, in USD.
type Result struct {
	Authority   string          `json:"authority"`
	UserStats   string          `json:"user_stats"`
	MakerVolume decimal.Decimal `json:"maker_volume_30d"`
	TakerVolume decimal.Decimal `json:"taker_volume_30d"`
}

// ParseAddressList splits ADDRS on commas and whitespace, validates each
// entry, and drops duplicates keeping first-seen order.
func ParseAddressList(s string) ([]solana.PublicKey, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	seen := make(map[solana.PublicKey]struct{}, len(fields))
	out := make([]solana.PublicKey, 0, len(fields))
	for _, f := range fields {
		pk, err := solana.PublicKeyFromBase58(f)
		if err != nil {
			return nil, fmt.Errorf("volume: invalid address %q: %w", f, err)
		}
		if _, dup := seen[pk]; dup {
			continue
		}
		seen[pk] = struct{}{}
		out = append(out, pk)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("volume: no addresses given")
	}
	return out, nil
}

// Fetch derives the UserStats PDA for authority and decodes its volumes.
func Fetch(ctx context.Context, rpc AccountReader, authority solana.PublicKey) (*Result, error) {
	pda, err := drift.UserStatsPDA(authority)
	if err != nil {
		return nil, err
	}

	info, err := rpc.GetAccountInfo(ctx, pda.String())
	if err != nil {
		return nil, fmt.Errorf("volume: user stats %s: %w", pda, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoUserStats, authority)
	}
	data, err := info.Bytes()
	if err != nil {
		return nil, err
	}

	stats, err := drift.DecodeUserStats(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Authority:   authority.String(),
		UserStats:   pda.String(),
		MakerVolume: drift.QuoteToDecimal(stats.MakerVolume30d),
		TakerVolume: drift.QuoteToDecimal(stats.TakerVolume30d),
	}, nil
}

// Print writes the per-address block.
func Print(w io.Writer, r *Result) error {
	_, err := fmt.Fprintf(w, "Market Maker Address: %s\nMakerVOL: %s\nTakerVOL: %s\n",
		r.Authority, r.MakerVolume.StringFixed(2), r.TakerVolume.StringFixed(2))
	return err
}
