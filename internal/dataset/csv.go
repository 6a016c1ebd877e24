// Package dataset loads labeled URL samples from CSV files.
//
// The header row must contain a "url" column and a label column named
// "type" or "label". Other columns are ignored.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
)

const (
	columnURL   = "url"
	columnType  = "type"
	columnLabel = "label"
)

// Options restricts what Read returns.
type Options struct {
	// Limit keeps only the first Limit rows. Zero keeps everything.
	Limit int
}

// Load opens path and reads it with Read.
func Load(ctx context.Context, path string, opts Options) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	rows, err := Read(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return rows, nil
}

// Read parses CSV from r in input order. Rows with an empty URL are skipped.
func Read(ctx context.Context, r io.Reader, opts Options) (domain.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty dataset", apperrors.ErrInvalidInput)
	}

	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	urlIdx, labelIdx, err := columns(header)
	if err != nil {
		return nil, err
	}

	var rows domain.Dataset

	for line := 2; ; line++ {
		if opts.Limit > 0 && len(rows) >= opts.Limit {
			break
		}

		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck // context errors pass through unchanged
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		url := field(record, urlIdx)
		if url == "" {
			continue
		}

		rows = append(rows, domain.LabeledURL{URL: url, Label: field(record, labelIdx)})
	}

	return rows, nil
}

func columns(header []string) (int, int, error) {
	urlIdx, labelIdx := -1, -1

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))) {
		case columnURL:
			urlIdx = i
		case columnType:
			labelIdx = i
		case columnLabel:
			if labelIdx < 0 {
				labelIdx = i
			}
		}
	}

	if urlIdx < 0 {
		return 0, 0, fmt.Errorf("%w: missing %q column", apperrors.ErrInvalidInput, columnURL)
	}

	if labelIdx < 0 {
		return 0, 0, fmt.Errorf("%w: missing %q or %q column", apperrors.ErrInvalidInput, columnType, columnLabel)
	}

	return urlIdx, labelIdx, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}
