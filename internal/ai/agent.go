package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultModel   = "openai/gpt-4.1-mini"
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// Rows beyond this are not sent back to the LLM.
	defaultMaxRows = 200
	queryTimeout   = 20 * time.Second
)

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// OpenRouter or any OpenAI-compatible endpoint.
	OpenRouterAPIKey string
	Model            string // e.g. "openai/gpt-4.1-mini"
	BaseURL          string

	// MaxRows caps the result set handed to the summariser. Zero means 200.
	MaxRows int

	Logger *logrus.Logger
}

// Agent answers questions about Drift fills and vault swaps by generating a
// read-only ClickHouse query, running it and summarising the rows.
type Agent struct {
	llm     llms.Model
	db      *sql.DB
	maxRows int
	logger  *logrus.Logger
}

// AskResult is the structured result of an Ask call.
type AskResult struct {
	SQL    string
	Answer string
	Rows   int
}

func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.ClickHouseAddr == "" {
		return nil, fmt.Errorf("CLICKHOUSE_ADDR is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	// readonly=1 makes ClickHouse itself reject writes, whatever the LLM emits.
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"readonly":           1,
			"max_execution_time": int(queryTimeout.Seconds()),
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("initialized AI agent")

	a := newAgent(llm, db, cfg.Logger)
	if cfg.MaxRows > 0 {
		a.maxRows = cfg.MaxRows
	}
	return a, nil
}

func newAgent(llm llms.Model, db *sql.DB, logger *logrus.Logger) *Agent {
	if logger == nil {
		logger = logrus.New()
	}
	return &Agent{llm: llm, db: db, maxRows: defaultMaxRows, logger: logger}
}

func (a *Agent) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Ask runs question → SQL → rows → answer.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	sqlQuery, err := a.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}

	rowsJSON, n, err := a.runQuery(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}

	answer, err := a.summariseResult(ctx, question, sqlQuery, rowsJSON)
	if err != nil {
		return nil, err
	}
	return &AskResult{SQL: sqlQuery, Answer: answer, Rows: n}, nil
}

const sqlPrompt = `
You are an expert ClickHouse SQL generator for Drift protocol analytics.

Use ONLY the following tables:
%s

Rules:
- Return a single SELECT query in ClickHouse SQL.
- Do NOT include any explanation or comments, only the SQL.
- Query drift.trade_records for fills, volume and fees; drift.swaps for vault swaps.
- Use ts (trade_records) or timestamp (swaps) for time filtering.
- Prices and amounts are already in human units; volume in USD is quote_asset_amount_filled.
- If the user asks for "top" or "biggest" something, use ORDER BY ... DESC and LIMIT.
- Never modify data: no INSERT, UPDATE, DELETE, DROP, ALTER, CREATE, TRUNCATE.

User question:
%s
`

const answerPrompt = `
You are a helpful assistant analysing Drift protocol trading activity.

User question:
%s

SQL that was executed:
%s

Query results in JSON (array of objects, can be empty, at most %d rows):
%s

Instructions:
- If the result set is empty, say that no data was found for the question.
- Otherwise, answer concisely using bullet points and short sentences.
- Include key numbers (volumes in USD, counts, prices, fees) rounded reasonably.
- Do not restate the raw JSON.
`

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithMaxTokens(512))
}

func (a *Agent) generateSQL(ctx context.Context, question string) (string, error) {
	resp, err := a.complete(ctx, fmt.Sprintf(sqlPrompt, schemaDescription, question))
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	sqlQuery := sanitizeSQL(resp)
	if err := validateSQL(sqlQuery); err != nil {
		return "", err
	}

	a.logger.WithField("sql", sqlQuery).Debug("generated SQL from question")
	return sqlQuery, nil
}

// runQuery executes sqlQuery with a row cap and encodes the rows as JSON.
func (a *Agent) runQuery(ctx context.Context, sqlQuery string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, withRowLimit(sqlQuery, a.maxRows))
	if err != nil {
		return "", 0, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", 0, fmt.Errorf("failed to get columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return "", 0, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return "", 0, fmt.Errorf("row iteration error: %w", err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return string(data), len(out), nil
}

func (a *Agent) summariseResult(ctx context.Context, question, sqlQuery, rowsJSON string) (string, error) {
	resp, err := a.complete(ctx, fmt.Sprintf(answerPrompt, question, sqlQuery, a.maxRows, rowsJSON))
	if err != nil {
		return "", fmt.Errorf("LLM summarisation failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

var (
	fenceRe = regexp.MustCompile("(?is)^```(?:sql)?\\s*(.*?)(```.*)?$")
	limitRe = regexp.MustCompile(`(?i)\bLIMIT\s+\d+(\s*,\s*\d+)?(\s+OFFSET\s+\d+)?\s*$`)
)

// sanitizeSQL strips code fences, a leading "sql" tag and trailing semicolons
// from the LLM output.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.EqualFold(s[:3], "sql") {
		s = strings.TrimSpace(s[3:])
	}
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// withRowLimit appends LIMIT n unless the query already ends with a LIMIT clause.
func withRowLimit(q string, n int) string {
	if n <= 0 || limitRe.MatchString(q) {
		return q
	}
	return fmt.Sprintf("%s LIMIT %d", q, n)
}

var allowedTables = []string{"TRADE_RECORDS", "SWAPS"}

var disallowedKeywords = []string{
	"INSERT ", "UPDATE ", "DELETE ", "DROP ", "ALTER ", "TRUNCATE ",
	"CREATE ", "RENAME ", "ATTACH ", "DETACH ",
}

// validateSQL accepts a single SELECT over the drift tables.
func validateSQL(s string) error {
	if s == "" {
		return fmt.Errorf("empty SQL generated by LLM")
	}

	upper := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("only SELECT queries are allowed, got: %s", upper[:min(20, len(upper))])
	}
	for _, kw := range disallowedKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("disallowed SQL keyword %q in generated query", kw)
		}
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("multiple statements or semicolons are not allowed")
	}

	for _, t := range allowedTables {
		if strings.Contains(upper, "FROM "+t) || strings.Contains(upper, "FROM DRIFT."+t) {
			return nil
		}
	}
	return fmt.Errorf("query must target drift.trade_records or drift.swaps")
}
