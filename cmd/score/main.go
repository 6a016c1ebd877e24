package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/app"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

func main() {
	probe := flag.String("probe", "", "Send a single URL to the oracle and print the raw and parsed reply")
	datasetPath := flag.String("dataset", "", "CSV dataset path (overrides DATASET_PATH)")
	limit := flag.Int("limit", 0, "Score only the first N rows (overrides DATASET_LIMIT)")
	checkpointPath := flag.String("checkpoint", "", "Checkpoint path (overrides CHECKPOINT_PATH)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, &logger)

	if *probe != "" {
		runProbe(ctx, application, *probe, &logger)

		return
	}

	result, err := application.RunScore(ctx, app.ScoreOptions{
		DatasetPath:    *datasetPath,
		Limit:          *limit,
		CheckpointPath: *checkpointPath,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("scoring run failed")
	}

	printSummary(result)

	if result.Summary.Interrupted {
		logger.Info().Msg("scoring interrupted; rerun with CHECKPOINT_RESUME=true to continue")
	}
}

func runProbe(ctx context.Context, application *app.App, url string, logger *zerolog.Logger) {
	res, err := application.Probe(ctx, url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		logger.Fatal().Err(err).Msg("probe failed")
	}

	fmt.Printf("Oracle:   %s/%s (%s)\n", res.Provider, res.Model, res.Latency.Round(time.Millisecond))
	fmt.Printf("Raw reply:\n%s\n\n", res.Raw)
	fmt.Printf("Score:    %.3f (%s)\n", res.Parsed.Score, res.Parsed.Strategy)

	if res.Parsed.Rationale != "" {
		fmt.Printf("Rationale: %s\n", res.Parsed.Rationale)
	}
}

func printSummary(result app.ScoreResult) {
	s := result.Summary

	fmt.Println("=== Scoring summary ===")
	fmt.Printf("Oracle:      %s/%s\n", result.Provider, result.Model)
	fmt.Printf("Checkpoint:  %s\n", result.Backend)
	fmt.Printf("Scored:      %d\n", s.Count)
	fmt.Printf("Skipped:     %d (already in checkpoint)\n", s.Skipped)
	fmt.Printf("Neutral:     %d\n", s.Neutral)

	if s.Canceled > 0 {
		fmt.Printf("Canceled:    %d\n", s.Canceled)
	}

	if s.Count > 0 {
		fmt.Printf("Mean score:  %.4f\n", s.Mean)
		fmt.Printf("Min score:   %.4f\n", s.Min)
		fmt.Printf("Max score:   %.4f\n", s.Max)
	}

	strategies := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		strategies = append(strategies, name)
	}

	sort.Strings(strategies)

	for _, name := range strategies {
		fmt.Printf("Parsed via %-8s %d\n", name+":", s.Strategies[name])
	}

	fmt.Printf("Tokens:      %d prompt, %d completion\n", result.Usage.PromptTokens, result.Usage.CompletionTokens)
	fmt.Printf("Est. cost:   $%.4f\n", result.Usage.CostUSD)
	fmt.Printf("Duration:    %s\n", s.Duration.Round(time.Millisecond))
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// setLogLevel sets the global log level based on the configuration.
func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
