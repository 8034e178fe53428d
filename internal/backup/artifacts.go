package backup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Artifact is one backup payload on disk.
type Artifact struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// listArtifacts returns files matching pattern under dir, newest first,
// capped at limit. Symlinks (the -latest pointers) are excluded: they
// duplicate their target in a listing.
func listArtifacts(dir, pattern string, limit int) ([]Artifact, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(matches))
	for _, match := range matches {
		info, err := os.Lstat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Path:    match,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].ModTime.After(artifacts[j].ModTime)
	})
	if limit > 0 && len(artifacts) > limit {
		artifacts = artifacts[:limit]
	}
	return artifacts, nil
}

// DatabaseArtifacts lists the newest compressed dumps under backupPath.
func DatabaseArtifacts(backupPath string, limit int) ([]Artifact, error) {
	return listArtifacts(filepath.Join(backupPath, "database"), "*.sql.gz", limit)
}

// FileArtifacts lists the newest site archives under backupPath.
func FileArtifacts(backupPath string, limit int) ([]Artifact, error) {
	artifacts, err := listArtifacts(filepath.Join(backupPath, "files"), "*.tar.gz", limit)
	if err != nil {
		return nil, err
	}
	// Keep real archives only; -latest entries are symlinks and already
	// filtered, but a copied tree may have materialized them.
	filtered := artifacts[:0]
	for _, a := range artifacts {
		if !strings.HasSuffix(a.Path, "-latest.tar.gz") {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// DiskUsage sums the size of all regular files under root. A missing
// tree is zero usage, not an error.
func DiskUsage(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries don't abort the walk
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return total, err
	}
	return total, nil
}

// humanSize formats a byte count the way the status report displays it.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit && exp < 4 {
		div *= unit
		exp++
	}
	suffix := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}[exp]
	return fmt.Sprintf("%.1f %s", float64(n)/float64(div), suffix)
}
