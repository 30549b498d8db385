// Package trades downloads daily Drift trade record CSVs for an account.
package trades

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/sirupsen/logrus"
)

var ErrNoData = errors.New("trades: no data for day")

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD as a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("trades: invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// Days lists every UTC day in [start, end].
func Days(start, end time.Time) ([]time.Time, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("trades: end %s before start %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayURL is {prefix}/user/{account}/tradeRecords/{yyyy}/{yyyymmdd}.
func DayURL(prefix, account string, day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("%s/user/%s/tradeRecords/%d/%d%02d%02d",
		strings.TrimRight(prefix, "/"), account, day.Year(), day.Year(), int(day.Month()), day.Day())
}

type Client struct {
	Prefix string
	HTTP   *http.Client
	Logger *logrus.Logger
}

func NewClient(prefix string, timeout time.Duration, logger *logrus.Logger) *Client {
	if prefix == "" {
		prefix = "https://data.api.drift.trade"
	}
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{Prefix: prefix, HTTP: &http.Client{Timeout: timeout}, Logger: logger}
}

// FetchDay downloads and parses one day. An empty file is ErrNoData.
func (c *Client) FetchDay(ctx context.Context, account string, day time.Time) ([]models.TradeRecord, error) {
	url := DayURL(c.Prefix, account, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trades: GET %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("trades: GET %s: http %d: %s", url, res.StatusCode, strings.TrimSpace(string(body)))
	}

	records, err := ParseCSV(res.Body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}

// FetchRange concatenates every day in [start, end]. Failed or empty days
// are logged and skipped.
func (c *Client) FetchRange(ctx context.Context, account string, start, end time.Time) ([]models.TradeRecord, error) {
	days, err := Days(start, end)
	if err != nil {
		return nil, err
	}

	var all []models.TradeRecord
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		records, err := c.FetchDay(ctx, account, day)
		switch {
		case errors.Is(err, ErrNoData):
			c.Logger.WithField("day", day.Format(dateLayout)).Info("no data available")
			continue
		case err != nil:
			c.Logger.WithError(err).WithField("day", day.Format(dateLayout)).Warn("error fetching day")
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

// ParseCSV maps columns by header name. Unknown columns are ignored and
// missing ones stay zero.
func ParseCSV(r io.Reader) ([]models.TradeRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trades: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	var out []models.TradeRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trades: line %d: %w", line, err)
		}
		rec, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("trades: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

type rowReader struct {
	cols map[string]int
	row  []string
	err  error
}

func (r *rowReader) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) float(name string) float64 {
	s := r.str(name)
	if s == "" || r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (r *rowReader) uint(name string, bits int) uint64 {
	s := r.str(name)
	if s == "" || r.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func parseRow(cols map[string]int, row []string) (models.TradeRecord, error) {
	r := &rowReader{cols: cols, row: row}
	rec := models.TradeRecord{
		TxSig:                  r.str("txSig"),
		Slot:                   r.uint("slot", 64),
		MarketIndex:            uint16(r.uint("marketIndex", 16)),
		MarketType:             r.str("marketType"),
		Action:                 r.str("action"),
		ActionExplanation:      r.str("actionExplanation"),
		Taker:                  r.str("taker"),
		TakerOrderDirection:    r.str("takerOrderDirection"),
		Maker:                  r.str("maker"),
		MakerOrderDirection:    r.str("makerOrderDirection"),
		BaseAssetAmountFilled:  r.float("baseAssetAmountFilled"),
		QuoteAssetAmountFilled: r.float("quoteAssetAmountFilled"),
		OraclePrice:            r.float("oraclePrice"),
		TakerFee:               r.float("takerFee"),
		MakerFee:               r.float("makerFee"),
	}
	if ts := r.uint("ts", 64); ts > 0 {
		rec.Ts = time.Unix(int64(ts), 0).UTC()
	}
	return rec, r.err
}

var csvHeader = []string{
	"ts", "txSig", "slot", "marketIndex", "marketType", "action", "actionExplanation",
	"taker", "takerOrderDirection", "maker", "makerOrderDirection",
	"baseAssetAmountFilled", "quoteAssetAmountFilled", "oraclePrice", "takerFee", "makerFee",
}

// WriteCSV writes records with the same column names ParseCSV reads.
func WriteCSV(w io.Writer, records []models.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, t := range records {
		err := cw.Write([]string{
			strconv.FormatInt(t.Ts.Unix(), 10), t.TxSig, strconv.FormatUint(t.Slot, 10),
			strconv.FormatUint(uint64(t.MarketIndex), 10), t.MarketType, t.Action, t.ActionExplanation,
			t.Taker, t.TakerOrderDirection, t.Maker, t.MakerOrderDirection,
			f(t.BaseAssetAmountFilled), f(t.QuoteAssetAmountFilled), f(t.OraclePrice), f(t.TakerFee), f(t.MakerFee),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
