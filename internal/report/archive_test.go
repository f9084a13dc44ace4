package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSweep(t *testing.T) {
	downloadDir := t.TempDir()
	archiveDir := t.TempDir()
	for _, name := range []string{"Weekly.csv", "Weekly.xml", "Weekly_Solution.csv"} {
		if err := os.WriteFile(filepath.Join(downloadDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// subdirectories stay behind
	if err := os.Mkdir(filepath.Join(downloadDir, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	a := NewArchiver(zap.NewNop())
	a.now = func() time.Time { return time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC) }

	moved, err := a.Sweep(downloadDir, archiveDir)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if len(moved) != 3 {
		t.Errorf("moved %d files, want 3", len(moved))
	}

	monthDir := filepath.Join(archiveDir, "Aug - 2026")
	entries, err := os.ReadDir(monthDir)
	if err != nil {
		t.Fatalf("month directory missing: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("archive holds %d files, want 3", len(entries))
	}

	left, err := os.ReadDir(downloadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || !left[0].IsDir() {
		t.Errorf("download dir should only hold the subdirectory, got %v", left)
	}
}

func TestSweep_MissingDownloadDir(t *testing.T) {
	a := NewArchiver(zap.NewNop())
	moved, err := a.Sweep(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if len(moved) != 0 {
		t.Errorf("moved = %v, want none", moved)
	}
}
