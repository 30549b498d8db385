package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	LogLevel string

	// RPC settings
	RPCUrl       string
	RPCTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Commitment   string
	RPCRateLimit float64 // requests per second, 0 = unlimited

	// Signing key; empty means scan / ephemeral mode where allowed
	PrivateKey string

	// Swift + DLOB
	SwiftURL  string
	DLOBURL   string
	DLOBWSURL string

	// Pyth Hermes oracle
	PythHermesURL string
	OracleFeedIn  string
	OracleFeedOut string

	// Jupiter
	JupiterURL    string
	JupiterAPIKey string

	// Swap loop
	VaultAuthority string
	InputMint      string
	OutputMint     string
	InputDecimals  int
	OutputDecimals int
	MaxSlippageBps int
	ChunkSize      float64
	Sleep          time.Duration

	// Optional swap guard; zero disables
	DailyLimit        float64
	MaxPriceImpactBps int

	// Yield providers
	SanctumURL     string
	ExponentURL    string
	JLPAccount     string
	StrictAccounts bool

	// Vault APY report
	VaultConfigsURL string
	VaultAPYsURL    string

	// Maker/taker volume
	Addrs string

	// Trade record export
	TradesURLPrefix string

	// HTTP client settings
	HTTPTimeout time.Duration

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Dashboard API
	APIAddr          string
	APIKey           string
	DevMode          bool
	OpenRouterAPIKey string
	AIModel          string
	AIBaseURL        string
	MetricsAddr      string

	parseErr error
}

func Load() *Config {
	r := &envReader{}
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// RPC_ENDPOINT is the name the vault scripts use; RPC_URL the Swift ones.
		RPCUrl:       firstEnv("RPC_URL", "RPC_ENDPOINT"),
		RPCTimeout:   r.durationEnv("RPC_TIMEOUT", 30*time.Second),
		MaxRetries:   r.intEnv("MAX_RETRIES", 3),
		RetryBackoff: r.durationEnv("RETRY_BACKOFF", time.Second),
		Commitment:   getEnv("COMMITMENT", "confirmed"),
		RPCRateLimit: r.floatEnv("RPC_RATE_LIMIT", 0),

		PrivateKey: strings.TrimSpace(os.Getenv("PRIVATE_KEY")),

		SwiftURL:  getEnv("SWIFT_URL", "https://swift.drift.trade"),
		DLOBURL:   getEnv("DLOB_URL", "https://dlob.drift.trade"),
		DLOBWSURL: getEnv("DLOB_WS_URL", "wss://dlob.drift.trade/ws"),

		PythHermesURL: getEnv("PYTH_HERMES_URL", "https://hermes.pyth.network"),
		OracleFeedIn:  os.Getenv("ORACLE_FEED_IN"),
		OracleFeedOut: getEnv("ORACLE_FEED_OUT", "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"),

		JupiterURL:    os.Getenv("JUPITER_URL"),
		JupiterAPIKey: os.Getenv("JUPITER_API_KEY"),

		VaultAuthority: os.Getenv("VAULT_AUTHORITY"),
		InputMint:      getEnv("INPUT_MINT", "Dso1bDeDjCQxTrWHqUUi63oBvV7Mdm6WaobLbQ7gnPQ"),
		OutputMint:     getEnv("OUTPUT_MINT", "So11111111111111111111111111111111111111112"),
		InputDecimals:  r.intEnv("INPUT_DECIMALS", 9),
		OutputDecimals: r.intEnv("OUTPUT_DECIMALS", 9),
		MaxSlippageBps: r.intEnv("MAX_SLIPPAGE_BPS", 20),
		ChunkSize:      r.floatEnv("CHUNK_SIZE_DSOL", 500),
		Sleep:          r.millisEnv("SLEEP_MS", 10*time.Second),

		DailyLimit:        r.floatEnv("DAILY_LIMIT_DSOL", 0),
		MaxPriceImpactBps: r.intEnv("MAX_PRICE_IMPACT_BPS", 0),

		SanctumURL:     getEnv("SANCTUM_URL", "https://extra-api.sanctum.so/v1/apy/latest"),
		ExponentURL:    getEnv("EXPONENT_URL", "https://web-api.exponent.finance/api/markets"),
		JLPAccount:     getEnv("JLP_ACCOUNT", "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5cVBadZi5"),
		StrictAccounts: r.boolEnv("STRICT_ACCOUNTS", false),

		VaultConfigsURL: os.Getenv("VAULT_CONFIGS_URL"),
		VaultAPYsURL:    os.Getenv("VAULT_APYS_URL"),

		Addrs: os.Getenv("ADDRS"),

		TradesURLPrefix: getEnv("TRADES_URL_PREFIX", "https://data.api.drift.trade"),

		HTTPTimeout: r.durationEnv("HTTP_TIMEOUT", 12*time.Second),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		ClickHouseAddr:     os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "drift"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		APIAddr:          getEnv("API_ADDR", ":8090"),
		APIKey:           os.Getenv("API_KEY"),
		DevMode:          r.boolEnv("DEV_MODE", false),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),
		AIBaseURL:        os.Getenv("AI_BASE_URL"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
	}
	cfg.parseErr = errors.Join(r.errs...)
	return cfg
}

// Require reports every listed environment key whose resolved value is empty.
// Keys use their environment variable names, e.g. "RPC_URL".
func (c *Config) Require(keys ...string) error {
	if c.parseErr != nil {
		return c.parseErr
	}
	values := c.values()

	var missing []string
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			return fmt.Errorf("config: unknown key %q", k)
		}
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks the numeric settings shared by every command.
func (c *Config) Validate() error {
	if c.parseErr != nil {
		return c.parseErr
	}
	if c.MaxSlippageBps < 0 || c.MaxSlippageBps > 10000 {
		return fmt.Errorf("config: MAX_SLIPPAGE_BPS must be within 0..10000, got %d", c.MaxSlippageBps)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: CHUNK_SIZE_DSOL must be > 0, got %v", c.ChunkSize)
	}
	if c.Sleep <= 0 {
		return fmt.Errorf("config: SLEEP_MS must be > 0")
	}
	if c.InputDecimals < 0 || c.InputDecimals > 18 {
		return fmt.Errorf("config: INPUT_DECIMALS out of range: %d", c.InputDecimals)
	}
	if c.OutputDecimals < 0 || c.OutputDecimals > 18 {
		return fmt.Errorf("config: OUTPUT_DECIMALS out of range: %d", c.OutputDecimals)
	}
	if c.DailyLimit < 0 {
		return fmt.Errorf("config: DAILY_LIMIT_DSOL must be >= 0")
	}
	if c.MaxPriceImpactBps < 0 || c.MaxPriceImpactBps > 10000 {
		return fmt.Errorf("config: MAX_PRICE_IMPACT_BPS must be within 0..10000, got %d", c.MaxPriceImpactBps)
	}
	return nil
}

// SwapLoopRequired lists the variables the swap loop cannot start without.
// The hosted Jupiter API rejects keyless requests; a self-hosted JUPITER_URL
// may not need one.
func (c *Config) SwapLoopRequired() []string {
	keys := []string{"RPC_URL", "VAULT_AUTHORITY", "ORACLE_FEED_IN", "ORACLE_FEED_OUT"}
	if strings.TrimSpace(c.JupiterURL) == "" {
		keys = append(keys, "JUPITER_API_KEY")
	}
	return keys
}

// ParseErr reports every typed variable that failed to parse. Require and
// Validate return it too.
func (c *Config) ParseErr() error { return c.parseErr }

// ScanMode is true when no signing key was provided.
func (c *Config) ScanMode() bool { return c.PrivateKey == "" }

func (c *Config) values() map[string]string {
	return map[string]string{
		"RPC_URL":            c.RPCUrl,
		"RPC_ENDPOINT":       c.RPCUrl,
		"PRIVATE_KEY":        c.PrivateKey,
		"SWIFT_URL":          c.SwiftURL,
		"DLOB_URL":           c.DLOBURL,
		"DLOB_WS_URL":        c.DLOBWSURL,
		"PYTH_HERMES_URL":    c.PythHermesURL,
		"ORACLE_FEED_IN":     c.OracleFeedIn,
		"ORACLE_FEED_OUT":    c.OracleFeedOut,
		"JUPITER_URL":        c.JupiterURL,
		"JUPITER_API_KEY":    c.JupiterAPIKey,
		"VAULT_AUTHORITY":    c.VaultAuthority,
		"INPUT_MINT":         c.InputMint,
		"OUTPUT_MINT":        c.OutputMint,
		"SANCTUM_URL":        c.SanctumURL,
		"EXPONENT_URL":       c.ExponentURL,
		"JLP_ACCOUNT":        c.JLPAccount,
		"VAULT_CONFIGS_URL":  c.VaultConfigsURL,
		"VAULT_APYS_URL":     c.VaultAPYsURL,
		"ADDRS":              c.Addrs,
		"TRADES_URL_PREFIX":  c.TradesURLPrefix,
		"REDIS_ADDR":         c.RedisAddr,
		"CLICKHOUSE_ADDR":    c.ClickHouseAddr,
		"OPENROUTER_API_KEY": c.OpenRouterAPIKey,
		"API_ADDR":           c.APIAddr,
	}
}

// LoadDotEnv loads .env from the working directory, falling back to the
// repository root. A missing file is not an error.
func LoadDotEnv(logger *logrus.Logger) {
	candidates := []string{".env"}
	if _, filename, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(filename), "../..", ".env"))
	}

	for _, p := range candidates {
		if err := godotenv.Load(p); err == nil {
			if logger != nil {
				logger.Debugf("loaded .env from %s", p)
			}
			return
		}
	}
	if logger != nil {
		logger.Debug("no .env file found, using system environment variables")
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// envReader parses typed variables and keeps every malformed one for Validate.
type envReader struct {
	errs []error
}

func (r *envReader) parse(key string, parse func(string) error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return
	}
	if err := parse(val); err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: invalid %s %q", key, val))
	}
}

func (r *envReader) intEnv(key string, defaultVal int) int {
	out := defaultVal
	r.parse(key, func(v string) (err error) {
		out, err = strconv.Atoi(v)
		return
	})
	return out
}

func (r *envReader) floatEnv(key string, defaultVal float64) float64 {
	out := defaultVal
	r.parse(key, func(v string) (err error) {
		out, err = strconv.ParseFloat(v, 64)
		return
	})
	return out
}

func (r *envReader) boolEnv(key string, defaultVal bool) bool {
	out := defaultVal
	r.parse(key, func(v string) (err error) {
		out, err = strconv.ParseBool(v)
		return
	})
	return out
}

func (r *envReader) durationEnv(key string, defaultVal time.Duration) time.Duration {
	out := defaultVal
	r.parse(key, func(v string) (err error) {
		out, err = time.ParseDuration(v)
		return
	})
	return out
}

// millisEnv reads an integer millisecond count, e.g. SLEEP_MS=10000.
func (r *envReader) millisEnv(key string, defaultVal time.Duration) time.Duration {
	out := defaultVal
	r.parse(key, func(v string) error {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			out = time.Duration(ms) * time.Millisecond
		}
		return err
	})
	return out
}
