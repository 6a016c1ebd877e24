package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/app"
	"github.com/lueurxax/url-risk-bench/internal/eval"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

func main() {
	datasetPath := flag.String("dataset", "", "CSV dataset path (overrides DATASET_PATH)")
	scoreFiles := flag.String("scores", "", "Comma-separated score files, merged left to right (default: configured checkpoint)")
	threshold := flag.Float64("threshold", -1, "Decision threshold (overrides DECISION_THRESHOLD when >=0)")
	limit := flag.Int("limit", 0, "Evaluate only the first N rows (overrides DATASET_LIMIT)")
	title := flag.String("title", "Evaluation Results", "Report title")
	details := flag.Bool("details", false, "Print a per-URL detail table")
	reportJSON := flag.String("report-json", "", "Write the full report as JSON to this path")
	notifyResult := flag.Bool("notify", false, "Send the summary to the configured Telegram chat")
	minAUC := flag.Float64("min-auc", -1, "Fail if AUROC is below this value (disabled if <0)")
	minF1 := flag.Float64("min-f1", -1, "Fail if F1 is below this value (disabled if <0)")
	flag.Parse()

	cfg, err := config.LoadWithoutOracle()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	th := cfg.DecisionThreshold
	if *threshold >= 0 {
		th = *threshold
	}

	report, err := app.New(cfg, &logger).RunEval(ctx, app.EvalOptions{
		DatasetPath: *datasetPath,
		Limit:       *limit,
		ScoreFiles:  splitList(*scoreFiles),
		Threshold:   th,
		Title:       *title,
		Notify:      *notifyResult,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluation failed: %v\n", err)
		os.Exit(1)
	}

	if err := eval.Render(os.Stdout, report, eval.RenderOptions{Title: *title, Details: *details}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to print report: %v\n", err)
		os.Exit(1)
	}

	if *reportJSON != "" {
		if err := writeReport(*reportJSON, report); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	failed := false

	if *minAUC >= 0 && report.AUC < *minAUC {
		fmt.Fprintf(os.Stderr, "AUROC %.4f below min %.4f\n", report.AUC, *minAUC)

		failed = true
	}

	if *minF1 >= 0 && report.F1 < *minF1 {
		fmt.Fprintf(os.Stderr, "F1 %.4f below min %.4f\n", report.F1, *minF1)

		failed = true
	}

	if failed {
		os.Exit(1)
	}
}

func writeReport(path string, report eval.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := eval.WriteJSON(f, report); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

func splitList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
}
