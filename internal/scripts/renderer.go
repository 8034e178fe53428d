package scripts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"text/template"
)

// Script file names inside the backup-scripts directory.
const (
	DBScriptName    = "db-backup.sh"
	FilesScriptName = "files-backup.sh"
)

// Params are the values substituted into the script templates. Values are
// trusted to be filesystem-safe paths and integers; the renderer performs
// no shell escaping.
type Params struct {
	BackupDir          string
	InfraDir           string
	WordPressRoot      string
	DBHost             string
	DBRetentionDays    int
	FilesRetentionDays int
}

// Renderer produces the two backup scripts from fixed templates.
type Renderer struct {
	dbTmpl    *template.Template
	filesTmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	dbTmpl, err := template.New(DBScriptName).Parse(dbScriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database script template: %w", err)
	}
	filesTmpl, err := template.New(FilesScriptName).Parse(filesScriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse files script template: %w", err)
	}
	return &Renderer{dbTmpl: dbTmpl, filesTmpl: filesTmpl}, nil
}

// RenderDB returns the database backup script body.
func (r *Renderer) RenderDB(p Params) (string, error) {
	var buf bytes.Buffer
	if err := r.dbTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render database script: %w", err)
	}
	return buf.String(), nil
}

// RenderFiles returns the file archive script body.
func (r *Renderer) RenderFiles(p Params) (string, error) {
	var buf bytes.Buffer
	if err := r.filesTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render files script: %w", err)
	}
	return buf.String(), nil
}

// WriteAll renders both scripts into dir and marks them executable. No
// partial-file cleanup is attempted on failure.
func (r *Renderer) WriteAll(dir string, p Params) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}

	dbBody, err := r.RenderDB(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, DBScriptName), []byte(dbBody), 0o755); err != nil {
		return fmt.Errorf("failed to write %s: %w", DBScriptName, err)
	}

	filesBody, err := r.RenderFiles(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, FilesScriptName), []byte(filesBody), 0o755); err != nil {
		return fmt.Errorf("failed to write %s: %w", FilesScriptName, err)
	}

	return nil
}

var retentionRe = regexp.MustCompile(`(?m)^RETENTION_DAYS=(\d+)$`)

// ParseRetention extracts the retention window from a rendered script.
// Used by status to report the active configuration without re-deriving
// it from defaults.
func ParseRetention(body string) (int, error) {
	match := retentionRe.FindStringSubmatch(body)
	if match == nil {
		return 0, fmt.Errorf("no retention clause found in script")
	}
	days, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("invalid retention value %q: %w", match[1], err)
	}
	return days, nil
}
