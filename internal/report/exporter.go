package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Exporter persists a tabular snapshot and returns where it went.
type Exporter interface {
	Export(ctx context.Context, rows [][]string) (string, error)
}

// CSVExporter writes the snapshot to Dir/Name, replacing any previous file.
type CSVExporter struct {
	Dir  string
	Name string
}

func (e CSVExporter) Export(ctx context.Context, rows [][]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := e.Name
	if name == "" {
		name = DefaultExportName
	}
	path := filepath.Join(e.Dir, name)
	if e.Dir != "" {
		if err := os.MkdirAll(e.Dir, 0o755); err != nil {
			return "", fmt.Errorf("ensure export dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteCSV(tmp, rows); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export file: %w", err)
	}
	return path, nil
}
