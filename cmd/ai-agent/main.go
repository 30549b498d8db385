package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aman-zulfiqar/drift-toolkit/internal/ai"
	"github.com/aman-zulfiqar/drift-toolkit/internal/config"
	"github.com/aman-zulfiqar/drift-toolkit/internal/logging"
)

// main answers questions about Drift fills and vault swaps stored in
// ClickHouse, either once (-q) or interactively.
func main() {
	question := flag.String("q", "", "ask one question and exit")
	model := flag.String("model", "", "model name (default AI_MODEL)")
	maxRows := flag.Int("max-rows", 0, "row cap for the generated query (default 200)")
	asJSON := flag.Bool("json", false, "print results as JSON")
	flag.Parse()

	bootLogger := logging.New("info")
	config.LoadDotEnv(bootLogger)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Require("OPENROUTER_API_KEY", "CLICKHOUSE_ADDR"); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if *model == "" {
		*model = cfg.AIModel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              *model,
		BaseURL:            cfg.AIBaseURL,
		MaxRows:            *maxRows,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	show := printText
	if *asJSON {
		show = printJSON
	}

	if *question != "" {
		res, err := agent.Ask(ctx, *question)
		if err != nil {
			logger.WithError(err).Fatal("query failed")
		}
		show(os.Stdout, res)
		return
	}

	fmt.Println("Drift trade analytics (NL → ClickHouse SQL)")
	fmt.Println("Ask about trade_records or swaps. Empty line to exit.")
	questions := prompt(ctx, os.Stdin)
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case q, ok := <-questions:
			if !ok {
				return
			}
			res, err := agent.Ask(ctx, q)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			show(os.Stdout, res)
		}
	}
}

// prompt yields trimmed non-empty lines until EOF, an empty line or ctx is done.
func prompt(ctx context.Context, in io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(in)
		for {
			fmt.Print("> ")
			if !sc.Scan() {
				return
			}
			q := strings.TrimSpace(sc.Text())
			if q == "" {
				return
			}
			select {
			case out <- q:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func printText(w io.Writer, res *ai.AskResult) {
	fmt.Fprintf(w, "\nSQL:\n%s\n\nAnswer (%d rows):\n%s\n\n", res.SQL, res.Rows, res.Answer)
}

func printJSON(w io.Writer, res *ai.AskResult) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"sql": res.SQL, "answer": res.Answer, "rows": res.Rows})
}
