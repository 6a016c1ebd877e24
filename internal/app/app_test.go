package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
	"github.com/lueurxax/url-risk-bench/internal/storage/checkpoint"
)

const testDataset = `url,type
https://www.wikipedia.org/,benign
http://paypal-account-verify.example/login,phishing
https://golang.org/doc/,benign
http://198.51.100.23/update.exe,malware
`

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, text)

	return nil
}

func newTestApp(t *testing.T, backend string) (*App, *config.Config, *recordingNotifier) {
	t.Helper()

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "urls.csv")
	require.NoError(t, os.WriteFile(datasetPath, []byte(testDataset), 0o600))

	checkpointPath := filepath.Join(dir, "scores.json")
	if backend == config.BackendSQLite {
		checkpointPath = filepath.Join(dir, "scores.db")
	}

	cfg := &config.Config{
		OracleProvider:       config.ProviderMock,
		OraclePromptStyle:    config.PromptStyleReasoning,
		RetryCount:           2,
		CheckpointBackend:    backend,
		CheckpointPath:       checkpointPath,
		CheckpointRun:        "test",
		CheckpointFlushEvery: 2,
		ScoringWorkers:       2,
		DatasetPath:          datasetPath,
		DecisionThreshold:    0.2,
	}

	logger := zerolog.Nop()
	a := New(cfg, &logger)
	n := &recordingNotifier{}
	a.SetNotifier(n)

	return a, cfg, n
}

func TestApp_ScoreThenEvaluate(t *testing.T) {
	ctx := context.Background()
	a, cfg, n := newTestApp(t, config.BackendFile)

	result, err := a.RunScore(ctx, ScoreOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Summary.Count)
	assert.Equal(t, "mock", result.Provider)
	assert.Equal(t, config.BackendFile, result.Backend)

	mapping, err := checkpoint.LoadFile(ctx, cfg.CheckpointPath)
	require.NoError(t, err)
	assert.Len(t, mapping, 4)

	report, err := a.RunEval(ctx, EvalOptions{ScoreFiles: []string{cfg.CheckpointPath}, Threshold: 0.5, Title: "mock", Notify: true})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, report.Coverage, 1e-12)
	assert.InDelta(t, 1.0, report.AUC, 1e-12)

	require.Len(t, n.messages, 2)
	assert.Contains(t, n.messages[0], "Scoring run test")
	assert.Contains(t, n.messages[1], "AUROC")
}

func TestApp_EvalReadsConfiguredStore(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t, config.BackendSQLite)

	_, err := a.RunScore(ctx, ScoreOptions{Limit: 3})
	require.NoError(t, err)

	report, err := a.RunEval(ctx, EvalOptions{Threshold: 0.2})
	require.NoError(t, err)

	assert.Len(t, report.Samples, 4)
	assert.InDelta(t, 0.75, report.Coverage, 1e-12)
}

func TestApp_ResumeSkipsScored(t *testing.T) {
	ctx := context.Background()
	a, cfg, _ := newTestApp(t, config.BackendFile)

	_, err := a.RunScore(ctx, ScoreOptions{Limit: 2})
	require.NoError(t, err)

	cfg.CheckpointResume = true

	result, err := a.RunScore(ctx, ScoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Skipped)
	assert.Equal(t, 2, result.Summary.Count)
}

func TestApp_EvalWithoutScores(t *testing.T) {
	a, _, _ := newTestApp(t, config.BackendFile)

	_, err := a.RunEval(context.Background(), EvalOptions{Threshold: 0.2})

	assert.True(t, errors.Is(err, errNoScores))
}

func TestApp_EvalMergesFilesLastWins(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t, config.BackendFile)
	dir := t.TempDir()

	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(first, []byte(`{
		"https://www.wikipedia.org/": 0.9,
		"http://paypal-account-verify.example/login": 0.9
	}`), 0o600))
	require.NoError(t, os.WriteFile(second, []byte(`{"scores": {"https://www.wikipedia.org/": 0.1}}`), 0o600))

	report, err := a.RunEval(ctx, EvalOptions{ScoreFiles: []string{first, second}, Threshold: 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 0.1, report.Samples[0].Score, 1e-12)
	assert.Equal(t, []string{"https://golang.org/doc/", "http://198.51.100.23/update.exe"}, report.Missing)
}

func TestApp_EvalBadScoreFile(t *testing.T) {
	a, _, _ := newTestApp(t, config.BackendFile)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))

	_, err := a.RunEval(context.Background(), EvalOptions{ScoreFiles: []string{bad}, Threshold: 0.5})

	assert.True(t, errors.Is(err, apperrors.ErrCheckpointFormat))
}

func TestApp_Probe(t *testing.T) {
	a, _, _ := newTestApp(t, config.BackendFile)

	res, err := a.Probe(context.Background(), "http://198.51.100.23/login")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Raw, "Signals:"))
	assert.Greater(t, res.Parsed.Score, 0.5)
	assert.NotEmpty(t, res.Parsed.Rationale)
}
