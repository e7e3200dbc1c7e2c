package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportArchive keeps rendered timetables on disk, one sub-directory per day.
type ExportArchive struct {
	baseDir string
	now     func() time.Time
}

// NewExportArchive ensures the base directory exists.
func NewExportArchive(baseDir string) (*ExportArchive, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &ExportArchive{baseDir: baseDir, now: time.Now}, nil
}

// Save writes content under <base>/<yyyy-mm-dd>/<filename> and returns the path relative to base.
// Filenames may not escape the archive.
func (a *ExportArchive) Save(filename string, content []byte) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, "..") {
		return "", fmt.Errorf("invalid export filename %q", filename)
	}
	rel := filepath.Join(a.now().Format("2006-01-02"), name)
	path := filepath.Join(a.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return rel, nil
}

// Path resolves a relative archive path.
func (a *ExportArchive) Path(rel string) string {
	return filepath.Join(a.baseDir, rel)
}

// PruneOlderThan removes files older than ttl and returns their relative paths.
func (a *ExportArchive) PruneOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := a.now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(a.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(a.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prune exports: %w", err)
	}
	return deleted, nil
}
