package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeArtifact(t *testing.T, path string, size int, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

func TestDatabaseArtifactsNewestFirst(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	writeArtifact(t, filepath.Join(root, "database", "old.sql.gz"), 10, now.Add(-2*time.Hour))
	writeArtifact(t, filepath.Join(root, "database", "new.sql.gz"), 20, now)
	writeArtifact(t, filepath.Join(root, "database", "middle.sql.gz"), 15, now.Add(-time.Hour))

	artifacts, err := DatabaseArtifacts(root, 2)
	if err != nil {
		t.Fatalf("DatabaseArtifacts failed: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("limit not applied: got %d artifacts", len(artifacts))
	}
	if filepath.Base(artifacts[0].Path) != "new.sql.gz" {
		t.Errorf("newest artifact first, got %s", artifacts[0].Path)
	}
	if filepath.Base(artifacts[1].Path) != "middle.sql.gz" {
		t.Errorf("second artifact = %s, want middle.sql.gz", artifacts[1].Path)
	}
}

func TestFileArtifactsExcludeLatestPointer(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	target := filepath.Join(root, "files", "site-20260823.tar.gz")
	writeArtifact(t, target, 128, now)
	if err := os.Symlink(target, filepath.Join(root, "files", "site-latest.tar.gz")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	artifacts, err := FileArtifacts(root, 10)
	if err != nil {
		t.Fatalf("FileArtifacts failed: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected the real archive only, got %d entries", len(artifacts))
	}
	if filepath.Base(artifacts[0].Path) != "site-20260823.tar.gz" {
		t.Errorf("unexpected artifact %s", artifacts[0].Path)
	}
}

func TestArtifactsMissingTree(t *testing.T) {
	root := t.TempDir()

	artifacts, err := DatabaseArtifacts(filepath.Join(root, "nope"), 5)
	if err != nil {
		t.Fatalf("missing tree should not error: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("missing tree yielded %d artifacts", len(artifacts))
	}
}

func TestDiskUsage(t *testing.T) {
	root := t.TempDir()
	writeArtifact(t, filepath.Join(root, "database", "a.sql.gz"), 100, time.Now())
	writeArtifact(t, filepath.Join(root, "files", "b.tar.gz"), 250, time.Now())

	total, err := DiskUsage(root)
	if err != nil {
		t.Fatalf("DiskUsage failed: %v", err)
	}
	if total != 350 {
		t.Errorf("DiskUsage = %d, want 350", total)
	}

	missing, err := DiskUsage(filepath.Join(root, "absent"))
	if err != nil {
		t.Fatalf("missing tree should be zero usage, got error %v", err)
	}
	if missing != 0 {
		t.Errorf("missing tree usage = %d, want 0", missing)
	}
}

func TestHumanSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{int64(1.5 * 1024 * 1024 * 1024), "1.5 GiB"},
	}
	for _, tc := range cases {
		if got := humanSize(tc.in); got != tc.want {
			t.Errorf("humanSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
