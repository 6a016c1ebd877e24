// Package app wires configuration, the oracle, checkpoint storage and
// notifications into the runnable modes of the binaries:
//
//   - Score: score every dataset URL and checkpoint the mapping
//   - Probe: send one URL to the oracle and show the raw and parsed reply
//   - Eval: evaluate a score mapping against the dataset labels
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	"github.com/lueurxax/url-risk-bench/internal/core/llm"
	"github.com/lueurxax/url-risk-bench/internal/dataset"
	"github.com/lueurxax/url-risk-bench/internal/eval"
	"github.com/lueurxax/url-risk-bench/internal/notify"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
	"github.com/lueurxax/url-risk-bench/internal/process/scoring"
	"github.com/lueurxax/url-risk-bench/internal/storage/checkpoint"
)

const (
	notifyTimeout = 10 * time.Second

	logFieldProvider = "provider"
	logFieldModel    = "model"
	logFieldRows     = "rows"
	logFieldBackend  = "backend"
	logFieldRun      = "run"
	logFieldTokens   = "tokens"
	logFieldCost     = "cost_usd"
	logFieldFiles    = "files"
	logFieldScores   = "scores"
)

var errNoScores = errors.New("no scores to evaluate")

// App holds the configuration and shared services of one process.
type App struct {
	cfg      *config.Config
	logger   *zerolog.Logger
	notifier notify.Notifier
}

// New creates an App. Telegram notifications are enabled when a bot token
// and chat are configured; a bot that fails to start is logged and skipped.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	a := &App{cfg: cfg, logger: logger, notifier: notify.Nop()}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Telegram notifications disabled")
		} else {
			a.notifier = tg
		}
	}

	return a
}

// SetNotifier replaces the notifier.
func (a *App) SetNotifier(n notify.Notifier) {
	a.notifier = n
}

// ScoreOptions override configuration for one scoring run.
type ScoreOptions struct {
	DatasetPath    string
	Limit          int
	CheckpointPath string
}

// ScoreResult is what a scoring run reports back.
type ScoreResult struct {
	Summary  scoring.Summary
	Usage    llm.Usage
	Provider string
	Model    string
	Backend  string
}

// RunScore scores the dataset and keeps the checkpoint current. Cancellation
// of ctx stops dispatching new URLs; the final flush still happens.
func (a *App) RunScore(ctx context.Context, opts ScoreOptions) (ScoreResult, error) {
	rows, err := a.loadDataset(ctx, opts.DatasetPath, opts.Limit)
	if err != nil {
		return ScoreResult{}, err
	}

	usage := llm.NewUsageTracker(a.cfg.OracleTokenBudget, a.logger)
	usage.SetAlertCallback(func(alert llm.BudgetAlert) {
		a.notify(ctx, notify.BudgetAlert(alert))
	})

	provider, err := a.newProvider(ctx, usage)
	if err != nil {
		return ScoreResult{}, err
	}
	defer closeProvider(provider, a.logger)

	settings := a.cfg.Checkpoint()
	if opts.CheckpointPath != "" {
		settings.Path = opts.CheckpointPath
	}

	store, err := checkpoint.Open(ctx, settings, a.logger)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("open checkpoint: %w", err)
	}
	defer store.Close()

	a.startHealthServer(ctx, store.Ping)

	cp, err := checkpoint.New(ctx, store, settings.FlushEvery, settings.Resume, a.logger)
	if err != nil {
		return ScoreResult{}, err
	}

	a.logger.Info().
		Str(logFieldProvider, string(provider.Name())).
		Str(logFieldModel, provider.Model()).
		Str(logFieldBackend, store.Backend()).
		Str(logFieldRun, settings.Run).
		Int(logFieldRows, len(rows)).
		Msg("Starting scoring run")

	scorer := scoring.NewScorer(provider, a.cfg.Retry(), a.logger)
	orchestrator := scoring.NewOrchestrator(scorer, cp, a.cfg.ScoringWorkers, a.logger)

	summary, runErr := orchestrator.Run(ctx, rows.URLs())

	result := ScoreResult{
		Summary:  summary,
		Usage:    usage.Snapshot(),
		Provider: string(provider.Name()),
		Model:    provider.Model(),
		Backend:  store.Backend(),
	}

	a.logger.Info().
		Int64(logFieldTokens, result.Usage.TotalTokens()).
		Float64(logFieldCost, result.Usage.CostUSD).
		Msg("Oracle usage")

	if runErr != nil {
		return result, fmt.Errorf("scoring run: %w", runErr)
	}

	a.notify(ctx, notify.RunSummary(settings.Run, provider, summary, result.Usage))

	return result, nil
}

// ProbeResult is the raw and parsed oracle answer for one URL.
type ProbeResult struct {
	Provider string
	Model    string
	Raw      string
	Parsed   scoring.Parsed
	Latency  time.Duration
}

// Probe sends url to the configured oracle once, without retries.
func (a *App) Probe(ctx context.Context, url string) (ProbeResult, error) {
	provider, err := a.newProvider(ctx, llm.NewUsageTracker(0, a.logger))
	if err != nil {
		return ProbeResult{}, err
	}
	defer closeProvider(provider, a.logger)

	start := time.Now()

	raw, err := provider.Call(ctx, url)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", provider.Name(), err)
	}

	return ProbeResult{
		Provider: string(provider.Name()),
		Model:    provider.Model(),
		Raw:      raw,
		Parsed:   scoring.NewParser().Parse(raw),
		Latency:  time.Since(start),
	}, nil
}

// EvalOptions select the inputs of an evaluation.
type EvalOptions struct {
	DatasetPath string
	Limit       int
	// ScoreFiles are merged in order, later files winning. When empty the
	// configured checkpoint store is read instead.
	ScoreFiles []string
	Threshold  float64
	Title      string
	Notify     bool
}

// RunEval evaluates the score mapping against the dataset labels.
func (a *App) RunEval(ctx context.Context, opts EvalOptions) (eval.Report, error) {
	rows, err := a.loadDataset(ctx, opts.DatasetPath, opts.Limit)
	if err != nil {
		return eval.Report{}, err
	}

	mapping, err := a.loadScores(ctx, opts.ScoreFiles)
	if err != nil {
		return eval.Report{}, err
	}

	if len(mapping) == 0 {
		return eval.Report{}, errNoScores
	}

	report, err := eval.NewEngine(a.logger).Evaluate(mapping, rows, opts.Threshold)
	if err != nil {
		return eval.Report{}, err
	}

	if opts.Notify {
		a.notify(ctx, notify.EvalSummary(opts.Title, report))
	}

	return report, nil
}

func (a *App) loadDataset(ctx context.Context, path string, limit int) (domain.Dataset, error) {
	if path == "" {
		path = a.cfg.DatasetPath
	}

	if limit <= 0 {
		limit = a.cfg.DatasetLimit
	}

	rows, err := dataset.Load(ctx, path, dataset.Options{Limit: limit})
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Int(logFieldRows, len(rows)).
		Interface("distribution", rows.Distribution()).
		Msg("Dataset loaded")

	return rows, nil
}

func (a *App) loadScores(ctx context.Context, files []string) (domain.ScoreMapping, error) {
	if len(files) == 0 {
		store, err := checkpoint.Open(ctx, a.cfg.Checkpoint(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("open checkpoint: %w", err)
		}
		defer store.Close()

		mapping, err := store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}

		return mapping, nil
	}

	var merged domain.ScoreMapping

	for _, path := range files {
		mapping, err := checkpoint.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}

		merged = domain.Merge(merged, mapping)
	}

	a.logger.Info().Strs(logFieldFiles, files).Int(logFieldScores, len(merged)).Msg("Score files merged")

	return merged, nil
}

func (a *App) newProvider(ctx context.Context, usage llm.UsageRecorder) (llm.Provider, error) {
	oracle := a.cfg.Oracle()

	prompt, err := llm.LoadPrompt(oracle.PromptStyle, oracle.PromptFile)
	if err != nil {
		return nil, err
	}

	provider, err := llm.New(ctx, oracle, prompt, usage, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}

	return provider, nil
}

func (a *App) startHealthServer(ctx context.Context, ready observability.ReadinessCheck) {
	if a.cfg.MetricsPort <= 0 {
		return
	}

	server := observability.NewServer(a.cfg.MetricsPort, ready, a.logger)

	go func() {
		if err := server.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("health check server error")
		}
	}()
}

// notify delivers text even when ctx was canceled by a signal.
func (a *App) notify(ctx context.Context, text string) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := a.notifier.Notify(notifyCtx, text); err != nil {
		a.logger.Warn().Err(err).Msg("notification failed")
	}
}

func closeProvider(provider llm.Provider, logger *zerolog.Logger) {
	closer, ok := provider.(io.Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing oracle client")
	}
}
