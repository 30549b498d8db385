package jupiter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	SwapModeExactIn  = "ExactIn"
	SwapModeExactOut = "ExactOut"
)

type QuoteRequest struct {
	InputMint  string
	OutputMint string
	Amount     uint64 // raw base units

	SlippageBps *uint16
	SwapMode    string // ExactIn | ExactOut

	Dexes        []string
	ExcludeDexes []string

	OnlyDirectRoutes *bool
	MaxAccounts      *uint64
}

// values validates r and encodes it as /quote query parameters.
func (r QuoteRequest) values() (url.Values, error) {
	switch {
	case strings.TrimSpace(r.InputMint) == "":
		return nil, fmt.Errorf("inputMint is required")
	case strings.TrimSpace(r.OutputMint) == "":
		return nil, fmt.Errorf("outputMint is required")
	case r.Amount == 0:
		return nil, fmt.Errorf("amount is required")
	}

	q := url.Values{
		"inputMint":  {r.InputMint},
		"outputMint": {r.OutputMint},
		"amount":     {strconv.FormatUint(r.Amount, 10)},
	}
	if r.SlippageBps != nil {
		q.Set("slippageBps", strconv.FormatUint(uint64(*r.SlippageBps), 10))
	}
	if r.SwapMode != "" {
		q.Set("swapMode", r.SwapMode)
	}
	if len(r.Dexes) > 0 {
		q.Set("dexes", strings.Join(r.Dexes, ","))
	}
	if len(r.ExcludeDexes) > 0 {
		q.Set("excludeDexes", strings.Join(r.ExcludeDexes, ","))
	}
	if r.OnlyDirectRoutes != nil {
		q.Set("onlyDirectRoutes", strconv.FormatBool(*r.OnlyDirectRoutes))
	}
	if r.MaxAccounts != nil {
		q.Set("maxAccounts", strconv.FormatUint(*r.MaxAccounts, 10))
	}
	return q, nil
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PlatformFee          *PlatformFee    `json:"platformFee,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`

	ContextSlot uint64  `json:"contextSlot,omitempty"`
	TimeTaken   float64 `json:"timeTaken,omitempty"`

	// Error is set by the API when no route was found.
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Amounts returns the parsed in/out amounts. It fails when the quote carries
// an error or either amount is missing or zero.
func (q *QuoteResponse) Amounts() (in, out uint64, err error) {
	if q == nil {
		return 0, 0, fmt.Errorf("nil quote")
	}
	if q.Error != "" {
		return 0, 0, fmt.Errorf("quote error: %s", q.Error)
	}
	if q.InAmount == "" || q.OutAmount == "" {
		return 0, 0, fmt.Errorf("quote missing inAmount/outAmount")
	}
	in, err = strconv.ParseUint(q.InAmount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid inAmount %q: %w", q.InAmount, err)
	}
	out, err = strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid outAmount %q: %w", q.OutAmount, err)
	}
	if in == 0 || out == 0 {
		return 0, 0, fmt.Errorf("quote has zero amount (in=%d out=%d)", in, out)
	}
	return in, out, nil
}

type PlatformFee struct {
	Amount string `json:"amount,omitempty"`
	FeeBps uint16 `json:"feeBps,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
	Bps      uint16   `json:"bps"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`

	FeeAmount *string `json:"feeAmount,omitempty"`
	FeeMint   *string `json:"feeMint,omitempty"`
}

type SwapRequest struct {
	UserPublicKey             string         `json:"userPublicKey"`
	QuoteResponse             *QuoteResponse `json:"quoteResponse"`
	WrapAndUnwrapSol          bool           `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool           `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports any            `json:"prioritizationFeeLamports,omitempty"`
}

type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"` // base64, unsigned
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}
