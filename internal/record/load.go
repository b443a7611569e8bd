package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// LoadFiles reads every path concurrently and concatenates the records in
// argument order, so the loaded sequence is stable across runs.
func LoadFiles(ctx context.Context, paths []string, format Format) ([]Record, error) {
	parts := make([][]Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := LoadFile(path, format)
			if err != nil {
				return err
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]Record, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func LoadFile(path string, format Format) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var recs []Record
	switch detectFormat(path, format) {
	case FormatJSON:
		recs, err = ReadJSON(f)
	default:
		recs, err = ReadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return recs, nil
}

func detectFormat(path string, format Format) Format {
	if format != FormatAuto {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatCSV
	}
}
