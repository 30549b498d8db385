package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/drift-toolkit/internal/models"
	"github.com/sirupsen/logrus"
)

const tradeRecordsDDL = `
CREATE TABLE IF NOT EXISTS trade_records (
	ts                        DateTime,
	tx_sig                    String,
	slot                      UInt64,
	market_index              UInt16,
	market_type               LowCardinality(String),
	action                    LowCardinality(String),
	action_explanation        String,
	taker                     String,
	taker_order_direction     LowCardinality(String),
	maker                     String,
	maker_order_direction     LowCardinality(String),
	base_asset_amount_filled  Float64,
	quote_asset_amount_filled Float64,
	oracle_price              Float64,
	taker_fee                 Float64,
	maker_fee                 Float64
) ENGINE = ReplacingMergeTree
ORDER BY (ts, tx_sig, taker, maker)`

const swapsDDL = `
CREATE TABLE IF NOT EXISTS swaps (
	signature    String,
	timestamp    DateTime,
	pair         String,
	token_in     String,
	token_out    String,
	amount_in    Float64,
	amount_out   Float64,
	price        Float64,
	oracle_price Float64,
	slippage_bps Float64,
	dex          String
) ENGINE = MergeTree
ORDER BY (timestamp, signature)`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithFields(logrus.Fields{"addr": cfg.Addr, "database": cfg.Database}).Info("connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

// EnsureSchema creates trade_records and swaps if missing.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{tradeRecordsDDL, swapsDDL} {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) InsertTrades(ctx context.Context, trades []models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO trade_records")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, t := range trades {
		if err := batch.Append(
			t.Ts,
			t.TxSig,
			t.Slot,
			t.MarketIndex,
			t.MarketType,
			t.Action,
			t.ActionExplanation,
			t.Taker,
			t.TakerOrderDirection,
			t.Maker,
			t.MakerOrderDirection,
			t.BaseAssetAmountFilled,
			t.QuoteAssetAmountFilled,
			t.OraclePrice,
			t.TakerFee,
			t.MakerFee,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append trade %s: %w", t.TxSig, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert trades: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) RecentTrades(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.conn.Query(ctx, `
		SELECT ts, tx_sig, slot, market_index, market_type, action, action_explanation,
		       taker, taker_order_direction, maker, maker_order_direction,
		       base_asset_amount_filled, quote_asset_amount_filled, oracle_price, taker_fee, maker_fee
		FROM trade_records
		ORDER BY ts DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		if err := rows.Scan(
			&t.Ts, &t.TxSig, &t.Slot, &t.MarketIndex, &t.MarketType, &t.Action, &t.ActionExplanation,
			&t.Taker, &t.TakerOrderDirection, &t.Maker, &t.MakerOrderDirection,
			&t.BaseAssetAmountFilled, &t.QuoteAssetAmountFilled, &t.OraclePrice, &t.TakerFee, &t.MakerFee,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO swaps (
			signature, timestamp, pair, token_in, token_out,
			amount_in, amount_out, price, oracle_price, slippage_bps, dex
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.Signature,
		swap.Timestamp,
		swap.Pair,
		swap.TokenIn,
		swap.TokenOut,
		swap.AmountIn,
		swap.AmountOut,
		swap.Price,
		swap.OraclePrice,
		swap.SlippageBps,
		swap.Dex,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
