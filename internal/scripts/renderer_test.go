package scripts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testParams() Params {
	return Params{
		BackupDir:          "/home/dev/Backups/infrastructure/shopfloor",
		InfraDir:           "/home/dev/.shopfloor",
		WordPressRoot:      "/home/dev/.shopfloor/sites",
		DBHost:             "db",
		DBRetentionDays:    7,
		FilesRetentionDays: 30,
	}
}

func TestRetentionRoundTrip(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	body, err := r.RenderDB(testParams())
	if err != nil {
		t.Fatalf("RenderDB failed: %v", err)
	}

	days, err := ParseRetention(body)
	if err != nil {
		t.Fatalf("ParseRetention failed: %v", err)
	}
	if days != 7 {
		t.Errorf("expected retention 7, got %d", days)
	}
}

func TestDBScriptExcludesSystemSchemas(t *testing.T) {
	r, _ := NewRenderer()
	body, err := r.RenderDB(testParams())
	if err != nil {
		t.Fatalf("RenderDB failed: %v", err)
	}

	for _, schema := range []string{"information_schema", "performance_schema", "mysql", "sys"} {
		if !strings.Contains(body, schema) {
			t.Errorf("deny-list entry %s missing from script", schema)
		}
	}
	if !strings.Contains(body, "--single-transaction") {
		t.Error("dump must use transactional-consistency flags")
	}
	if !strings.Contains(body, "skipping") {
		t.Error("per-database failure must be skip-and-continue")
	}
}

func TestFilesScriptSkipsSitesWithoutPublic(t *testing.T) {
	r, _ := NewRenderer()
	body, err := r.RenderFiles(testParams())
	if err != nil {
		t.Fatalf("RenderFiles failed: %v", err)
	}

	if !strings.Contains(body, `[ ! -d "$site/public" ]`) {
		t.Error("script must gate on the conventional public directory")
	}
	if !strings.Contains(body, "continue") {
		t.Error("a site without public/ must not abort sibling sites")
	}
}

func TestFilesScriptExemptsLatestSymlinkFromPrune(t *testing.T) {
	r, _ := NewRenderer()
	body, _ := r.RenderFiles(testParams())

	if !strings.Contains(body, `! -name '*-latest.tar.gz'`) {
		t.Error("retention prune must exempt the -latest symlink")
	}
	if !strings.Contains(body, "ln -sfn") {
		t.Error("latest symlink must be repointed atomically")
	}
}

func TestWriteAllProducesExecutableScripts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backup-scripts")
	r, _ := NewRenderer()

	if err := r.WriteAll(dir, testParams()); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	for _, name := range []string{DBScriptName, FilesScriptName} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("script %s not written: %v", name, err)
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Errorf("script %s is not executable", name)
		}
	}
}

func TestWriteAllFailsOnUncreatableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create blocking file: %v", err)
	}

	r, _ := NewRenderer()
	err := r.WriteAll(filepath.Join(blocker, "backup-scripts"), testParams())
	if err == nil {
		t.Fatal("expected filesystem error when scripts dir cannot be created")
	}
}

func TestParseRetentionRejectsMissingClause(t *testing.T) {
	if _, err := ParseRetention("#!/bin/sh\necho no clause here\n"); err == nil {
		t.Fatal("expected error for script without retention clause")
	}
}
