package yields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	projectrpc "github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	bin "github.com/gagliardetto/binary"
	"github.com/shopspring/decimal"
)

var ErrAccountNotFound = errors.New("yields: account not found")

// SanctumLSTs are the liquid staking tokens requested from Sanctum, in report order.
var SanctumLSTs = []string{"jitoSOL", "mSOL", "dSOL", "INF", "dfdvSOL"}

// jlpFeeAPROffset is the u32 fee APR (bps) in the JLP pool account:
// 8-byte discriminator + 100 bytes of preceding fields.
const jlpFeeAPROffset = 8 + 100

type HTTPError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("yields: GET %s: http %d: %s", e.URL, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &HTTPError{URL: rawURL, StatusCode: res.StatusCode, Body: body}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yields: decode %s: %w", rawURL, err)
	}
	return nil
}

// FetchSanctum returns LST APYs as fractions, e.g. {"jitoSOL": 0.0741}.
func FetchSanctum(ctx context.Context, client *http.Client, baseURL string) (map[string]float64, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("yields: sanctum url: %w", err)
	}
	q := u.Query()
	for _, lst := range SanctumLSTs {
		q.Add("lst", lst)
	}
	u.RawQuery = q.Encode()

	var resp struct {
		APYs map[string]float64 `json:"apys"`
	}
	if err := getJSON(ctx, client, u.String(), &resp); err != nil {
		return nil, err
	}
	if resp.APYs == nil {
		return map[string]float64{}, nil
	}
	return resp.APYs, nil
}

type exponentMarket struct {
	Stats *struct {
		UnderlyingYieldsPct        *float64 `json:"underlyingYieldsPct"`
		YTImpliedRateAnnualizedPct *float64 `json:"ytImpliedRateAnnualizedPct"`
	} `json:"stats"`
	Metadata *struct {
		PTTicker string `json:"ptTicker"`
	} `json:"metadata"`
}

// ExponentRates holds the kySOL and fragSOL rates in percent.
type ExponentRates struct {
	KySOL   decimal.Decimal
	FragSOL decimal.Decimal
}

// FetchExponent scans the market list for kySOL and fragSOL PTs. The implied
// YT rate wins over the underlying yield; a later market overrides an earlier one.
func FetchExponent(ctx context.Context, client *http.Client, marketsURL string) (ExponentRates, error) {
	var resp struct {
		Data []exponentMarket `json:"data"`
	}
	if err := getJSON(ctx, client, marketsURL, &resp); err != nil {
		return ExponentRates{}, err
	}

	var out ExponentRates
	for _, m := range resp.Data {
		ticker := ""
		if m.Metadata != nil {
			ticker = strings.ToLower(m.Metadata.PTTicker)
		}
		rate := decimal.NewFromFloat(exponentRate(m)).Mul(hundred)
		if strings.Contains(ticker, "kysol") {
			out.KySOL = rate
		}
		if strings.Contains(ticker, "fragsol") {
			out.FragSOL = rate
		}
	}
	return out, nil
}

func exponentRate(m exponentMarket) float64 {
	if m.Stats == nil {
		return 0
	}
	if m.Stats.YTImpliedRateAnnualizedPct != nil {
		return *m.Stats.YTImpliedRateAnnualizedPct
	}
	if m.Stats.UnderlyingYieldsPct != nil {
		return *m.Stats.UnderlyingYieldsPct
	}
	return 0
}

type AccountReader interface {
	GetAccountInfo(ctx context.Context, address string) (*projectrpc.AccountInfo, error)
}

// FetchJLP reads the pool fee APR in percent. A non-base64 or short account
// yields zero; a missing account is ErrAccountNotFound.
func FetchJLP(ctx context.Context, rpc AccountReader, account string) (decimal.Decimal, error) {
	info, err := rpc.GetAccountInfo(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("yields: jlp account: %w", err)
	}
	if info == nil {
		return decimal.Zero, ErrAccountNotFound
	}
	data, err := info.Bytes()
	if err != nil {
		if errors.Is(err, projectrpc.ErrUnsupportedEncoding) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return JLPFeeAPR(data), nil
}

// JLPFeeAPR decodes the fee APR at the fixed offset. Short buffers yield zero.
func JLPFeeAPR(data []byte) decimal.Decimal {
	if len(data) < jlpFeeAPROffset+4 {
		return decimal.Zero
	}
	bps, err := bin.NewBinDecoder(data[jlpFeeAPROffset:]).ReadUint32(bin.LE)
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(bps)).Div(hundred)
}
