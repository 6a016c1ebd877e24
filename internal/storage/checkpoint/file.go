package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

const filePerm = 0o644

// fileDocument is the on-disk checkpoint format.
type fileDocument struct {
	RunID     string             `json:"run_id,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
	Scores    map[string]float64 `json:"scores"`
	Reasons   map[string]string  `json:"reasons,omitempty"`
}

// FileStore keeps the mapping in a single JSON file.
type FileStore struct {
	path  string
	runID string
	now   func() time.Time
}

// NewFileStore creates a store backed by path.
func NewFileStore(path, runID string) *FileStore {
	return &FileStore{path: path, runID: runID, now: time.Now}
}

func (s *FileStore) Backend() string {
	return config.BackendFile
}

// Path returns the checkpoint file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the checkpoint file. A missing file yields an empty mapping.
// Both the current document format and a flat {"url": score} object are accepted.
func (s *FileStore) Load(_ context.Context) (domain.ScoreMapping, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewScoreMapping(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	mapping, err := decodeScoreFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	return mapping, nil
}

// Save writes the full mapping atomically.
func (s *FileStore) Save(_ context.Context, mapping domain.ScoreMapping) error {
	doc := fileDocument{
		RunID:     s.runID,
		UpdatedAt: s.now().UTC(),
		Scores:    mapping.Scores(),
		Reasons:   mapping.Rationales(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	if err := writeFileAtomic(s.path, data, filePerm); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", s.path, err)
	}

	return nil
}

// Reset deletes the checkpoint file if it exists.
func (s *FileStore) Reset(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint %s: %w", s.path, err)
	}

	return nil
}

// Ping checks that the checkpoint directory exists.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("checkpoint directory: %w", err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// LoadFile reads a checkpoint or legacy score file from path.
func LoadFile(ctx context.Context, path string) (domain.ScoreMapping, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("score file: %w", err)
	}

	return NewFileStore(path, "").Load(ctx)
}

func decodeScoreFile(data []byte) (domain.ScoreMapping, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCheckpointFormat, err)
	}

	if raw, ok := probe["scores"]; ok && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		var doc fileDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrCheckpointFormat, err)
		}

		return fromMaps(doc.Scores, doc.Reasons), nil
	}

	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCheckpointFormat, err)
	}

	return fromMaps(flat, nil), nil
}

func fromMaps(scores map[string]float64, reasons map[string]string) domain.ScoreMapping {
	mapping := make(domain.ScoreMapping, len(scores))

	for url, score := range scores {
		mapping.Put(domain.ScoreRecord{URL: url, Score: score, Rationale: reasons[url]})
	}

	return mapping
}

var _ Store = (*FileStore)(nil)
