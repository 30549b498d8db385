package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/aman-zulfiqar/drift-toolkit/internal/jupiter"
	"github.com/labstack/echo/v4"
)

// quoteView is a Jupiter quote annotated with the token symbols.
type quoteView struct {
	*jupiter.QuoteResponse
	InputSymbol  string `json:"inputSymbol"`
	OutputSymbol string `json:"outputSymbol"`
}

// Quote proxies a Jupiter quote. Mints default to the dSOL→SOL pair the
// swap loop trades; amount is in raw base units.
func (h *Handlers) Quote(c echo.Context) error {
	if h.Jupiter == nil {
		return h.unavailable(c, "jupiter")
	}

	req, field, err := bindQuoteRequest(c)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid "+field, map[string]any{field: err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Jupiter.Quote(ctx, req)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "jupiter quote failed", map[string]any{"err": err.Error()})
	}
	if out.Error != "" {
		return h.err(c, http.StatusUnprocessableEntity, "no route", map[string]any{"err": out.Error})
	}
	return c.JSON(http.StatusOK, quoteView{
		QuoteResponse: out,
		InputSymbol:   constants.SymbolFor(req.InputMint),
		OutputSymbol:  constants.SymbolFor(req.OutputMint),
	})
}

// bindQuoteRequest reads the query string. On failure it names the offending
// parameter.
func bindQuoteRequest(c echo.Context) (jupiter.QuoteRequest, string, error) {
	req := jupiter.QuoteRequest{InputMint: constants.MintDSOL, OutputMint: constants.MintWSOL}
	var (
		slippage    uint16
		direct      bool
		maxAccounts uint64
	)

	b := echo.QueryParamsBinder(c).FailFast(true).
		String("inputMint", &req.InputMint).
		String("outputMint", &req.OutputMint).
		MustUint64("amount", &req.Amount).
		Uint16("slippageBps", &slippage).
		String("swapMode", &req.SwapMode).
		Bool("onlyDirectRoutes", &direct).
		Uint64("maxAccounts", &maxAccounts)
	if err := b.BindError(); err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) {
			return req, be.Field, errors.New(bindingReason(be))
		}
		return req, "query", err
	}

	req.InputMint = strings.TrimSpace(req.InputMint)
	req.OutputMint = strings.TrimSpace(req.OutputMint)
	switch {
	case req.Amount == 0:
		return req, "amount", errors.New("must be a positive uint64")
	case req.InputMint == req.OutputMint:
		return req, "outputMint", errors.New("must differ from inputMint")
	case req.SwapMode != "" && req.SwapMode != jupiter.SwapModeExactIn && req.SwapMode != jupiter.SwapModeExactOut:
		return req, "swapMode", errors.New("must be ExactIn or ExactOut")
	}

	// The binder leaves absent parameters at their zero value.
	if c.QueryParam("slippageBps") != "" {
		req.SlippageBps = &slippage
	}
	if c.QueryParam("onlyDirectRoutes") != "" {
		req.OnlyDirectRoutes = &direct
	}
	if c.QueryParam("maxAccounts") != "" {
		req.MaxAccounts = &maxAccounts
	}
	req.Dexes = splitList(c.QueryParams()["dexes"])
	req.ExcludeDexes = splitList(c.QueryParams()["excludeDexes"])
	return req, "", nil
}

func bindingReason(be *echo.BindingError) string {
	if len(be.Values) == 0 {
		return "required"
	}
	return "malformed value " + strings.Join(be.Values, ",")
}

// splitList flattens repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
