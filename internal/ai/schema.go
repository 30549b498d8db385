package ai

// schemaDescription describes the ClickHouse tables used for NL→SQL prompting.
//
// Keep it in sync with the DDL in internal/cache/clickhouse.go.
const schemaDescription = `
Database: drift

Table: trade_records  -- Drift perp/spot fills, one row per fill
Columns:
  - ts                        DateTime  -- Fill time (UTC)
  - tx_sig                    String    -- Transaction signature
  - slot                      UInt64    -- Solana slot
  - market_index              UInt16    -- Drift market index (0 = SOL-PERP)
  - market_type               String    -- "perp" or "spot"
  - action                    String    -- e.g. "fill"
  - action_explanation        String    -- e.g. "orderFilledWithMatch", "liquidation"
  - taker                     String    -- Taker user account
  - taker_order_direction     String    -- "long" or "short"
  - maker                     String    -- Maker user account (may be empty for AMM fills)
  - maker_order_direction     String    -- "long" or "short"
  - base_asset_amount_filled  Float64   -- Filled size in base units
  - quote_asset_amount_filled Float64   -- Filled notional in USD
  - oracle_price              Float64   -- Oracle price at fill
  - taker_fee                 Float64   -- Fee paid by the taker in USD
  - maker_fee                 Float64   -- Fee paid (negative = rebate) by the maker in USD

Table: swaps  -- dSOL→SOL swaps executed by the vault swap loop
Columns:
  - signature    String    -- Transaction signature
  - timestamp    DateTime  -- Execution time (UTC)
  - pair         String    -- e.g. "dSOL/SOL"
  - token_in     String
  - token_out    String
  - amount_in    Float64
  - amount_out   Float64
  - price        Float64   -- amount_out / amount_in
  - oracle_price Float64   -- Oracle ratio at decision time
  - slippage_bps Float64   -- Slippage vs oracle in basis points
  - dex          String    -- Router, e.g. "Jupiter"

Notes:
  - Fill price is quote_asset_amount_filled / base_asset_amount_filled.
  - Volume in USD is SUM(quote_asset_amount_filled).
  - Time filters use ts for trade_records and timestamp for swaps, e.g. ts >= now() - INTERVAL 24 HOUR.
`
