package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/olekukonko/tablewriter"

	"devinfra-cli/internal/scripts"
)

// systemSchemas are never dumped and never reported as covered.
var systemSchemas = map[string]bool{
	"information_schema": true,
	"performance_schema": true,
	"mysql":              true,
	"sys":                true,
}

// Status writes the full report to w. Read-only. Every probe after the
// installed check is independently best-effort: a failing section prints
// its error and the next section still runs. Always returns nil once the
// installed check itself could be made.
func (m *Manager) Status(ctx context.Context, w io.Writer, opts Options) error {
	opts.ApplyDefaults(m.inst)

	state, err := m.State(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Backup status for infrastructure '%s'\n\n", m.inst.Name)

	if state == StateAbsent {
		fmt.Fprintln(w, "Backups are not installed for this infrastructure.")
		fmt.Fprintf(w, "Run 'devinfra backup add %s' to configure them.\n", m.inst.Name)
		return nil
	}

	fmt.Fprintf(w, "Configuration: installed (scheduler container %s)\n", state)
	m.reportRetention(w)
	m.reportJobs(ctx, w)
	m.reportArtifacts(w, opts)
	m.reportDiskUsage(w, opts)
	m.reportDatabases(ctx, w)
	return nil
}

// reportRetention parses the rendered scripts rather than re-deriving
// defaults, so the report shows what is actually in effect.
func (m *Manager) reportRetention(w io.Writer) {
	db, files, err := m.activeRetention()
	if err != nil {
		fmt.Fprintf(w, "Retention: unavailable (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "Retention: database %d days, files %d days\n", db, files)
}

func (m *Manager) reportJobs(ctx context.Context, w io.Writer) {
	fmt.Fprintln(w, "\nScheduled jobs:")

	available, err := m.sched.DaemonAvailable(ctx)
	if err != nil || !available {
		fmt.Fprintln(w, "  scheduler daemon unreachable; job listing unavailable")
		return
	}

	jobs, err := m.sched.ListJobs(ctx)
	if err != nil {
		fmt.Fprintf(w, "  failed to list jobs: %v\n", err)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Job", "Schedule", "Command", "No-Overlap"})
	for _, job := range jobs {
		if job.Container != m.inst.SchedulerContainerName() {
			continue
		}
		table.Append([]string{job.Name, job.Schedule, job.Command, fmt.Sprintf("%t", job.NoOverlap)})
	}
	table.Render()
}

func (m *Manager) reportArtifacts(w io.Writer, opts Options) {
	fmt.Fprintln(w, "\nRecent artifacts:")

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Artifact", "Size", "Modified"})

	dbArtifacts, err := DatabaseArtifacts(opts.BackupPath, 5)
	if err != nil {
		fmt.Fprintf(w, "  failed to list database artifacts: %v\n", err)
	}
	for _, a := range dbArtifacts {
		table.Append([]string{"database", a.Path, humanSize(a.Size), a.ModTime.Format(time.RFC3339)})
	}

	fileArtifacts, err := FileArtifacts(opts.BackupPath, 5)
	if err != nil {
		fmt.Fprintf(w, "  failed to list file artifacts: %v\n", err)
	}
	for _, a := range fileArtifacts {
		table.Append([]string{"files", a.Path, humanSize(a.Size), a.ModTime.Format(time.RFC3339)})
	}

	if len(dbArtifacts)+len(fileArtifacts) == 0 {
		fmt.Fprintln(w, "  none yet")
		return
	}
	table.Render()
}

func (m *Manager) reportDiskUsage(w io.Writer, opts Options) {
	usage, err := DiskUsage(opts.BackupPath)
	if err != nil {
		fmt.Fprintf(w, "\nDisk usage: unavailable (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "\nDisk usage: %s in %s\n", humanSize(usage), opts.BackupPath)
}

// reportDatabases probes the instance's database and lists the schemas
// the backup covers. Credentials come from the infrastructure's .env.
func (m *Manager) reportDatabases(ctx context.Context, w io.Writer) {
	env, err := m.inst.Env()
	if err != nil {
		fmt.Fprintf(w, "\nDatabases: unavailable (%v)\n", err)
		return
	}

	password := env["MYSQL_ROOT_PASSWORD"]
	if password == "" {
		fmt.Fprintln(w, "\nDatabases: skipped (no MYSQL_ROOT_PASSWORD in .env)")
		return
	}
	port := env["MYSQL_PORT"]
	if port == "" {
		port = "3306"
	}

	schemas, err := coveredSchemas(ctx, fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/", password, port))
	if err != nil {
		fmt.Fprintf(w, "\nDatabases: unreachable (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "\nDatabases covered: %d\n", len(schemas))
	for _, schema := range schemas {
		fmt.Fprintf(w, "  - %s\n", schema)
	}
}

// coveredSchemas enumerates non-system schemas over a live connection.
func coveredSchemas(ctx context.Context, dsn string) ([]string, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetConnMaxLifetime(time.Minute)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(probeCtx, "SHOW DATABASES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if !systemSchemas[name] {
			schemas = append(schemas, name)
		}
	}
	return schemas, rows.Err()
}

// activeRetention reads the retention windows back out of the rendered
// scripts.
func (m *Manager) activeRetention() (dbDays, filesDays int, err error) {
	dbDays, err = scriptRetention(filepath.Join(m.inst.ScriptsDir(), scripts.DBScriptName))
	if err != nil {
		return 0, 0, err
	}
	filesDays, err = scriptRetention(filepath.Join(m.inst.ScriptsDir(), scripts.FilesScriptName))
	if err != nil {
		return 0, 0, err
	}
	return dbDays, filesDays, nil
}

func scriptRetention(path string) (int, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return scripts.ParseRetention(string(body))
}
