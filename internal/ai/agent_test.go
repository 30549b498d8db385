package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, t.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1 FROM trade_records", "SELECT 1 FROM trade_records"},
		{"fenced", "```sql\nSELECT count() FROM trade_records;\n```", "SELECT count() FROM trade_records"},
		{"bare fence", "```\nSELECT * FROM swaps\n```\nsome trailing text", "SELECT * FROM swaps"},
		{"sql prefix", "sql SELECT 1 FROM swaps", "SELECT 1 FROM swaps"},
		{"trailing semicolon", "  SELECT 1 FROM swaps ;  ", "SELECT 1 FROM swaps"},
		{"upper fence", "```SQL\nSELECT 1 FROM swaps\n```", "SELECT 1 FROM swaps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSQL(tt.in))
		})
	}
}

func TestWithRowLimit(t *testing.T) {
	assert.Equal(t, "SELECT * FROM swaps LIMIT 200", withRowLimit("SELECT * FROM swaps", 200))
	assert.Equal(t, "SELECT * FROM swaps LIMIT 5", withRowLimit("SELECT * FROM swaps LIMIT 5", 200))
	assert.Equal(t, "SELECT * FROM swaps limit 10, 20", withRowLimit("SELECT * FROM swaps limit 10, 20", 200))
	assert.Equal(t, "SELECT * FROM swaps", withRowLimit("SELECT * FROM swaps", 0))
}

func TestValidateSQL(t *testing.T) {
	ok := []string{
		"SELECT sum(quote_asset_amount_filled) FROM trade_records WHERE ts >= now() - INTERVAL 1 DAY",
		"select count() from drift.trade_records",
		"SELECT avg(slippage_bps) FROM drift.swaps",
		"SELECT * FROM swaps ORDER BY timestamp DESC LIMIT 10",
	}
	for _, q := range ok {
		assert.NoError(t, validateSQL(q), q)
	}

	bad := map[string]string{
		"empty":       "",
		"not select":  "SHOW TABLES",
		"drop":        "SELECT 1 FROM trade_records; DROP TABLE trade_records",
		"delete":      "SELECT * FROM trade_records WHERE 1 IN (DELETE FROM swaps)",
		"semicolon":   "SELECT 1 FROM swaps;",
		"other table": "SELECT * FROM system.tables",
		"old table":   "SELECT * FROM solana.pools",
	}
	for name, q := range bad {
		assert.Error(t, validateSQL(q), name)
	}
}

func TestGenerateSQL(t *testing.T) {
	llm := &fakeLLM{reply: "```sql\nSELECT taker, sum(taker_fee) FROM drift.trade_records GROUP BY taker ORDER BY 2 DESC LIMIT 5\n```"}
	a := newAgent(llm, nil, nil)

	q, err := a.generateSQL(context.Background(), "who paid the most taker fees?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT taker, sum(taker_fee) FROM drift.trade_records GROUP BY taker ORDER BY 2 DESC LIMIT 5", q)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "who paid the most taker fees?")
	assert.Contains(t, llm.prompts[0], "quote_asset_amount_filled")
}

func TestGenerateSQL_RejectsUnsafe(t *testing.T) {
	a := newAgent(&fakeLLM{reply: "DROP TABLE drift.trade_records"}, nil, nil)
	_, err := a.generateSQL(context.Background(), "drop it")
	assert.Error(t, err)
}

func TestGenerateSQL_LLMError(t *testing.T) {
	a := newAgent(&fakeLLM{err: errors.New("rate limited")}, nil, nil)
	_, err := a.generateSQL(context.Background(), "volume today")
	assert.ErrorContains(t, err, "rate limited")
}

func TestSummariseResult(t *testing.T) {
	llm := &fakeLLM{reply: "  - Volume was $1.2M  \n"}
	a := newAgent(llm, nil, nil)

	got, err := a.summariseResult(context.Background(), "volume?", "SELECT 1 FROM trade_records", `[{"v":1200000}]`)
	require.NoError(t, err)
	assert.Equal(t, "- Volume was $1.2M", got)
	assert.Contains(t, llm.prompts[0], `[{"v":1200000}]`)
}
