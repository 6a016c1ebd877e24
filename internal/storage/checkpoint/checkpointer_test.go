package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

var errDiskFull = errors.New("no space left on device")

func testSettings(backend, path string) config.CheckpointSettings {
	return config.CheckpointSettings{Backend: backend, Path: path, Run: "test", FlushEvery: 2}
}

// memStore records every Save and can be told to fail.
type memStore struct {
	mu       sync.Mutex
	saved    domain.ScoreMapping
	saves    []int
	resets   int
	failures int
}

func (m *memStore) Backend() string { return "memory" }

func (m *memStore) Load(context.Context) (domain.ScoreMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saved == nil {
		return domain.NewScoreMapping(), nil
	}

	return m.saved.Clone(), nil
}

func (m *memStore) Save(_ context.Context, mapping domain.ScoreMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--

		return errDiskFull
	}

	m.saved = mapping.Clone()
	m.saves = append(m.saves, len(mapping))

	return nil
}

func (m *memStore) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resets++
	m.saved = nil

	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func record(i int) domain.ScoreRecord {
	return domain.ScoreRecord{URL: fmt.Sprintf("http://site%d.test/", i), Score: 0.25}
}

func TestCheckpointer_FlushCadence(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	cp, err := New(ctx, store, 3, false, nil)
	require.NoError(t, err)

	var flushed []int

	for i := 1; i <= 7; i++ {
		ok, err := cp.Put(ctx, record(i))
		require.NoError(t, err)

		if ok {
			flushed = append(flushed, i)
		}
	}

	assert.Equal(t, []int{3, 6}, flushed)
	assert.Equal(t, []int{3, 6}, store.saves)

	require.NoError(t, cp.Flush(ctx))
	assert.Equal(t, 7, len(store.saved))
}

func TestCheckpointer_OverwriteDoesNotFlush(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	cp, err := New(ctx, store, 2, false, nil)
	require.NoError(t, err)

	_, err = cp.Put(ctx, record(1))
	require.NoError(t, err)

	ok, err := cp.Put(ctx, record(1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.saves)
	assert.Equal(t, 1, cp.Len())
}

func TestCheckpointer_ResumeLoadsExisting(t *testing.T) {
	ctx := context.Background()
	existing := domain.NewScoreMapping()
	existing.Put(record(1))
	store := &memStore{saved: existing}

	cp, err := New(ctx, store, 10, true, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, store.resets)
	assert.Equal(t, existing, cp.Mapping())
}

func TestCheckpointer_FreshRunResets(t *testing.T) {
	ctx := context.Background()
	existing := domain.NewScoreMapping()
	existing.Put(record(1))
	store := &memStore{saved: existing}

	cp, err := New(ctx, store, 10, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, store.resets)
	assert.Empty(t, cp.Mapping())
}

func TestCheckpointer_FlushRetriesOnce(t *testing.T) {
	ctx := context.Background()
	store := &memStore{failures: 1}

	cp, err := New(ctx, store, 10, false, nil)
	require.NoError(t, err)

	_, err = cp.Put(ctx, record(1))
	require.NoError(t, err)
	require.NoError(t, cp.Flush(ctx))
	assert.Equal(t, []int{1}, store.saves)
}

func TestCheckpointer_FlushFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	store := &memStore{failures: 2}

	cp, err := New(ctx, store, 1, false, nil)
	require.NoError(t, err)

	_, err = cp.Put(ctx, record(1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))
	assert.True(t, errors.Is(err, errDiskFull))
}

func TestCheckpointer_MappingIsACopy(t *testing.T) {
	ctx := context.Background()

	cp, err := New(ctx, &memStore{}, 10, false, nil)
	require.NoError(t, err)

	_, err = cp.Put(ctx, record(1))
	require.NoError(t, err)

	snapshot := cp.Mapping()
	snapshot.Put(record(2))

	assert.Equal(t, 1, cp.Len())
}

func TestCheckpointer_FileStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scores.json")

	store, err := Open(ctx, testSettings(config.BackendFile, path), nil)
	require.NoError(t, err)

	cp, err := New(ctx, store, 2, false, nil)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := cp.Put(ctx, record(i))
		require.NoError(t, err)
	}

	onDisk, err := LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Len(t, onDisk, 2, "only the cadence flush has happened")

	require.NoError(t, cp.Flush(ctx))

	onDisk, err = LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, cp.Mapping(), onDisk)

	resumed, err := New(ctx, NewFileStore(path, "next"), 2, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, resumed.Len())
}
