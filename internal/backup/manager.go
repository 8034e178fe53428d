package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"devinfra-cli/internal/compose"
	"devinfra-cli/internal/docker"
	"devinfra-cli/internal/execute"
	"devinfra-cli/internal/infra"
	"devinfra-cli/internal/logger"
	"devinfra-cli/internal/scheduler"
	"devinfra-cli/internal/scripts"
)

// ServiceName is the compose service holding the rendered backup scripts
// for the scheduler daemon. At most one per infrastructure.
const ServiceName = "backup-scheduler"

// State of a backup configuration, derived in one place (State method)
// instead of re-checking files ad hoc in each command.
type State int

const (
	StateAbsent State = iota
	StateConfigured
	StateStopped
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "absent"
	}
}

// Options are the tunables of one backup configuration.
type Options struct {
	// BackupPath is the backup root on the host. Default:
	// ~/Backups/infrastructure/<infra-name>.
	BackupPath string
	// DBSchedule and FilesSchedule are cron expressions for the daemon.
	DBSchedule    string
	FilesSchedule string
	// Retention windows in days.
	DBRetentionDays    int
	FilesRetentionDays int
	// WordPressRoot holds the per-site directories. Default:
	// <infraDir>/sites.
	WordPressRoot string
	// SchedulerImage is the image of the backup-scheduler container; it
	// needs mysql, mysqldump, tar and a POSIX shell.
	SchedulerImage string
	// DaemonContainer is the scheduler daemon's container name.
	DaemonContainer string
	// DBHost is the database service name on the compose network.
	DBHost string
}

// ApplyDefaults fills unset fields from the instance layout.
func (o *Options) ApplyDefaults(inst *infra.Instance) {
	if o.BackupPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			o.BackupPath = filepath.Join(home, "Backups", "infrastructure", inst.Name)
		}
	}
	if o.DBSchedule == "" {
		o.DBSchedule = "@hourly"
	}
	if o.FilesSchedule == "" {
		o.FilesSchedule = "0 2 * * *"
	}
	if o.DBRetentionDays == 0 {
		o.DBRetentionDays = 7
	}
	if o.FilesRetentionDays == 0 {
		o.FilesRetentionDays = 30
	}
	if o.WordPressRoot == "" {
		o.WordPressRoot = filepath.Join(inst.Dir, "sites")
	}
	if o.SchedulerImage == "" {
		o.SchedulerImage = "mariadb:10.11"
	}
	if o.DaemonContainer == "" {
		o.DaemonContainer = "ofelia"
	}
	if o.DBHost == "" {
		o.DBHost = "db"
	}
}

// SmokeResult is the outcome of the post-add test invocation.
type SmokeResult struct {
	Passed   bool
	Artifact string
	Output   string
}

// Manager drives the backup lifecycle of one infrastructure instance.
type Manager struct {
	inst    *infra.Instance
	compose *compose.Manager
	docker  docker.Client
	sched   *scheduler.Manager
	runner  execute.Runner
	log     *logger.Logger
}

func NewManager(inst *infra.Instance, cm *compose.Manager, dc docker.Client, sm *scheduler.Manager, runner execute.Runner, log *logger.Logger) *Manager {
	return &Manager{inst: inst, compose: cm, docker: dc, sched: sm, runner: runner, log: log}
}

// State derives the lifecycle state from scripts presence, the compose
// declaration, and the container runtime.
func (m *Manager) State(ctx context.Context) (State, error) {
	declared, err := m.compose.HasService(ServiceName)
	if err != nil {
		return StateAbsent, err
	}
	if !m.inst.HasScripts() || !declared {
		return StateAbsent, nil
	}

	containerState, err := m.docker.State(ctx, m.inst.SchedulerContainerName())
	if err != nil {
		return StateConfigured, err
	}
	switch containerState {
	case docker.StateRunning:
		return StateRunning, nil
	case docker.StateStopped:
		return StateStopped, nil
	default:
		return StateConfigured, nil
	}
}

// Add transitions ABSENT → CONFIGURED: renders scripts, declares the
// scheduler service with its job labels, brings the stack up, and smoke-
// tests the database script.
func (m *Manager) Add(ctx context.Context, opts Options) (*SmokeResult, error) {
	opts.ApplyDefaults(m.inst)

	if err := scheduler.ValidateSchedule(opts.DBSchedule); err != nil {
		return nil, err
	}
	if err := scheduler.ValidateSchedule(opts.FilesSchedule); err != nil {
		return nil, err
	}

	if err := m.inst.Lock(); err != nil {
		return nil, err
	}
	defer m.inst.Unlock()

	return m.add(ctx, opts)
}

func (m *Manager) add(ctx context.Context, opts Options) (*SmokeResult, error) {
	available, err := m.sched.DaemonAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("%w: container '%s' is not running", ErrSchedulerUnavailable, opts.DaemonContainer)
	}

	declared, err := m.compose.HasService(ServiceName)
	if err != nil {
		return nil, err
	}
	if declared {
		return nil, fmt.Errorf("%w for '%s'", ErrAlreadyConfigured, m.inst.Name)
	}

	// A leftover container from a torn configuration is discarded along
	// with whatever schedules it carried.
	if err := m.docker.ForceRemove(ctx, m.inst.SchedulerContainerName()); err != nil {
		return nil, err
	}

	for _, dir := range []string{
		filepath.Join(opts.BackupPath, "database"),
		filepath.Join(opts.BackupPath, "files"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	renderer, err := scripts.NewRenderer()
	if err != nil {
		return nil, err
	}
	params := scripts.Params{
		BackupDir:          opts.BackupPath,
		InfraDir:           m.inst.Dir,
		WordPressRoot:      opts.WordPressRoot,
		DBHost:             opts.DBHost,
		DBRetentionDays:    opts.DBRetentionDays,
		FilesRetentionDays: opts.FilesRetentionDays,
	}
	if err := renderer.WriteAll(m.inst.ScriptsDir(), params); err != nil {
		return nil, err
	}

	if err := m.compose.AddService(ServiceName, m.serviceDefinition(opts)); err != nil {
		return nil, err
	}
	m.log.Infow("backup configured", "infra", m.inst.Name,
		"db_schedule", opts.DBSchedule, "files_schedule", opts.FilesSchedule)

	if err := m.compose.Up(ctx); err != nil {
		return nil, err
	}

	return m.smokeTest(ctx, opts), nil
}

// serviceDefinition builds the backup-scheduler compose service. The
// backup root and site tree are mounted at their host paths so the paths
// embedded in the scripts resolve inside the container too.
func (m *Manager) serviceDefinition(opts Options) compose.Service {
	scriptsDir := m.inst.ScriptsDir()
	labels := scheduler.MergeLabels(
		scheduler.JobLabels(m.inst.Name+"-db-backup", opts.DBSchedule,
			filepath.Join(scriptsDir, scripts.DBScriptName)),
		scheduler.JobLabels(m.inst.Name+"-files-backup", opts.FilesSchedule,
			filepath.Join(scriptsDir, scripts.FilesScriptName)),
	)

	return compose.Service{
		Image:         opts.SchedulerImage,
		ContainerName: m.inst.SchedulerContainerName(),
		Command:       []string{"sleep", "infinity"},
		Environment:   []string{"MYSQL_ROOT_PASSWORD=${MYSQL_ROOT_PASSWORD}"},
		Volumes: []interface{}{
			scriptsDir + ":" + scriptsDir + ":ro",
			opts.BackupPath + ":" + opts.BackupPath,
			opts.WordPressRoot + ":" + opts.WordPressRoot + ":ro",
		},
		Labels:  labels,
		Restart: "unless-stopped",
	}
}

// smokeTest executes the database script once and reports pass/fail on
// whether a compressed dump now exists. Failure does not fail the add.
func (m *Manager) smokeTest(ctx context.Context, opts Options) *SmokeResult {
	result := &SmokeResult{}

	scriptPath := filepath.Join(m.inst.ScriptsDir(), scripts.DBScriptName)
	stdout, stderr, err := m.runner.Run(ctx, "docker", "exec", m.inst.SchedulerContainerName(), "sh", scriptPath)
	result.Output = stdout + stderr
	if err != nil {
		m.log.Warnw("smoke test execution failed", "infra", m.inst.Name, "error", err)
	}

	matches, _ := filepath.Glob(filepath.Join(opts.BackupPath, "database", "*.sql.gz"))
	if len(matches) > 0 {
		result.Passed = true
		result.Artifact = matches[0]
	}
	return result
}

// Remove transitions back to ABSENT: the container and the compose
// declaration go away, rendered scripts and artifacts stay on disk for
// manual deletion.
func (m *Manager) Remove(ctx context.Context) error {
	if err := m.inst.Lock(); err != nil {
		return err
	}
	defer m.inst.Unlock()
	return m.remove(ctx)
}

func (m *Manager) remove(ctx context.Context) error {
	if err := m.docker.ForceRemove(ctx, m.inst.SchedulerContainerName()); err != nil {
		return err
	}

	removed, err := m.compose.RemoveService(ServiceName)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("Warning: service '%s' not declared in %s; nothing to remove\n", ServiceName, m.compose.Path())
		return nil
	}

	m.log.Infow("backup removed", "infra", m.inst.Name)
	return m.compose.Up(ctx)
}

// Configure is remove followed by add with the new options. Not atomic: a
// failed add leaves the configuration ABSENT, it is not rolled back.
func (m *Manager) Configure(ctx context.Context, opts Options) (*SmokeResult, error) {
	opts.ApplyDefaults(m.inst)

	if err := scheduler.ValidateSchedule(opts.DBSchedule); err != nil {
		return nil, err
	}
	if err := scheduler.ValidateSchedule(opts.FilesSchedule); err != nil {
		return nil, err
	}

	if err := m.inst.Lock(); err != nil {
		return nil, err
	}
	defer m.inst.Unlock()

	if err := m.remove(ctx); err != nil {
		return nil, err
	}
	return m.add(ctx, opts)
}

// RunFilter selects which scripts Run executes.
type RunFilter struct {
	DBOnly    bool
	FilesOnly bool
}

// Run triggers an immediate execution of the configured backup scripts
// through the scheduler container.
func (m *Manager) Run(ctx context.Context, filter RunFilter) error {
	if !m.inst.HasScripts() {
		return fmt.Errorf("%w for '%s': run 'devinfra backup add %s' first",
			ErrNotConfigured, m.inst.Name, m.inst.Name)
	}

	var names []string
	switch {
	case filter.DBOnly:
		names = []string{scripts.DBScriptName}
	case filter.FilesOnly:
		names = []string{scripts.FilesScriptName}
	default:
		names = []string{scripts.DBScriptName, scripts.FilesScriptName}
	}

	for _, name := range names {
		scriptPath := filepath.Join(m.inst.ScriptsDir(), name)
		fmt.Printf("Running %s...\n", name)
		stdout, stderr, err := m.runner.Run(ctx, "docker", "exec", m.inst.SchedulerContainerName(), "sh", scriptPath)
		if stdout != "" {
			fmt.Print(stdout)
		}
		if err != nil {
			return fmt.Errorf("%s failed: %w (stderr: %s)", name, err, stderr)
		}
		fmt.Printf("✓ %s completed\n", name)
	}
	return nil
}
