package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Archiver moves processed report files out of the download directory into
// month-named subdirectories of the archive root, so repeated runs never
// mix fresh downloads with already-delivered reports.
type Archiver struct {
	log *zap.Logger
	now func() time.Time
}

// NewArchiver creates an archiver using the wall clock.
func NewArchiver(log *zap.Logger) *Archiver {
	return &Archiver{log: log, now: time.Now}
}

// Sweep moves every regular file from downloadDir into the current month's
// archive directory ("Aug - 2026" style) under archiveDir. Returns the
// archived file names.
func (a *Archiver) Sweep(downloadDir, archiveDir string) ([]string, error) {
	entries, err := os.ReadDir(downloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	monthDir := filepath.Join(archiveDir, a.now().Format("Jan - 2006"))
	if err := os.MkdirAll(monthDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	var moved []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(downloadDir, entry.Name())
		dst := filepath.Join(monthDir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return moved, fmt.Errorf("failed to archive %s: %w", entry.Name(), err)
		}
		moved = append(moved, entry.Name())
		a.log.Info("Report archived", zap.String("file", entry.Name()), zap.String("dir", monthDir))
	}
	return moved, nil
}
