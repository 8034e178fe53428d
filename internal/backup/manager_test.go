package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"devinfra-cli/internal/compose"
	"devinfra-cli/internal/docker"
	"devinfra-cli/internal/execute"
	"devinfra-cli/internal/infra"
	"devinfra-cli/internal/logger"
	"devinfra-cli/internal/scheduler"
)

const baseCompose = `services:
  db:
    image: mariadb:10.11
    container_name: shopfloor_db
  web:
    image: nginx:alpine
`

// newTestManager lays out a minimal infrastructure in a temp dir and
// wires the manager with fakes. The scheduler daemon starts running.
func newTestManager(t *testing.T) (*Manager, *execute.FakeRunner, *docker.FakeClient, Options) {
	t.Helper()
	root := t.TempDir()

	dir := filepath.Join(root, ".shopfloor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, infra.ComposeFileName), []byte(baseCompose), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, infra.EnvFileName), []byte("MYSQL_ROOT_PASSWORD=secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	inst, err := infra.Resolve(root, "shopfloor")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	runner := execute.NewFakeRunner()
	dockerFake := docker.NewFakeClient()
	dockerFake.Add("ofelia", "running", nil)

	m := NewManager(
		inst,
		compose.NewManager(inst.ComposePath(), runner),
		dockerFake,
		scheduler.NewManager("ofelia", dockerFake),
		runner,
		logger.Nop(),
	)

	opts := Options{BackupPath: filepath.Join(root, "backups")}
	return m, runner, dockerFake, opts
}

func TestStateLifecycle(t *testing.T) {
	m, _, dockerFake, opts := newTestManager(t)
	ctx := context.Background()

	state, err := m.State(ctx)
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateAbsent {
		t.Fatalf("fresh instance state = %s, want absent", state)
	}

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// The fake runner does not start containers, so the declaration
	// exists without a running scheduler.
	if state, _ = m.State(ctx); state != StateConfigured {
		t.Errorf("state after add = %s, want configured", state)
	}

	dockerFake.Add(m.inst.SchedulerContainerName(), "running", nil)
	if state, _ = m.State(ctx); state != StateRunning {
		t.Errorf("state with running container = %s, want running", state)
	}

	dockerFake.Add(m.inst.SchedulerContainerName(), "exited", nil)
	if state, _ = m.State(ctx); state != StateStopped {
		t.Errorf("state with exited container = %s, want stopped", state)
	}
}

func TestAddFailsWithoutSchedulerDaemon(t *testing.T) {
	m, _, dockerFake, opts := newTestManager(t)
	dockerFake.ForceRemove(context.Background(), "ofelia")

	_, err := m.Add(context.Background(), opts)
	if !errors.Is(err, ErrSchedulerUnavailable) {
		t.Fatalf("Add without daemon = %v, want ErrSchedulerUnavailable", err)
	}

	// A failed precondition must not leave a partial configuration.
	if state, _ := m.State(context.Background()); state != StateAbsent {
		t.Errorf("state after failed add = %s, want absent", state)
	}
}

func TestAddRejectsDoubleConfiguration(t *testing.T) {
	m, _, _, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if _, err := m.Add(ctx, opts); !errors.Is(err, ErrAlreadyConfigured) {
		t.Fatalf("second Add = %v, want ErrAlreadyConfigured", err)
	}
}

func TestAddRejectsInvalidSchedule(t *testing.T) {
	m, runner, _, opts := newTestManager(t)
	opts.DBSchedule = "not-a-cron"

	if _, err := m.Add(context.Background(), opts); err == nil {
		t.Fatal("Add accepted an invalid cron expression")
	}
	// Validation happens before any mutation.
	if len(runner.Calls) != 0 {
		t.Errorf("invalid schedule still ran commands: %v", runner.Calls)
	}
	if m.inst.HasScripts() {
		t.Error("invalid schedule still rendered scripts")
	}
}

func TestAddRendersScriptsAndDeclaresService(t *testing.T) {
	m, runner, _, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	for _, name := range []string{"db-backup.sh", "files-backup.sh"} {
		info, err := os.Stat(filepath.Join(m.inst.ScriptsDir(), name))
		if err != nil {
			t.Fatalf("script %s missing: %v", name, err)
		}
		if info.Mode().Perm()&0o111 == 0 {
			t.Errorf("script %s is not executable", name)
		}
	}

	declared, err := m.compose.HasService(ServiceName)
	if err != nil {
		t.Fatal(err)
	}
	if !declared {
		t.Error("backup-scheduler service not declared after add")
	}

	for _, sub := range []string{"database", "files"} {
		if _, err := os.Stat(filepath.Join(opts.BackupPath, sub)); err != nil {
			t.Errorf("backup subdirectory %s missing: %v", sub, err)
		}
	}

	if !runner.CalledWith("compose up") {
		t.Error("add did not bring the stack up")
	}
}

func TestAddDeclaresBothJobs(t *testing.T) {
	m, _, _, opts := newTestManager(t)
	opts.DBSchedule = "0 */2 * * *"

	if _, err := m.Add(context.Background(), opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	config, err := m.compose.Read()
	if err != nil {
		t.Fatal(err)
	}
	labels := config.Services[ServiceName].Labels

	if got := labels["ofelia.job-exec.shopfloor-db-backup.schedule"]; got != "0 */2 * * *" {
		t.Errorf("db job schedule = %q, want flag value verbatim", got)
	}
	if _, ok := labels["ofelia.job-exec.shopfloor-files-backup.schedule"]; !ok {
		t.Error("files job not declared")
	}
}

func TestRemoveReturnsToAbsent(t *testing.T) {
	m, _, dockerFake, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	dockerFake.Add(m.inst.SchedulerContainerName(), "running", nil)

	if err := m.Remove(ctx); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if state, _ := m.State(ctx); state != StateAbsent {
		t.Errorf("state after remove = %s, want absent", state)
	}

	found := false
	for _, name := range dockerFake.Removed {
		if name == m.inst.SchedulerContainerName() {
			found = true
		}
	}
	if !found {
		t.Error("remove did not force-remove the scheduler container")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	// Removing an unconfigured backup warns and succeeds.
	if err := m.Remove(context.Background()); err != nil {
		t.Fatalf("Remove on absent configuration = %v, want nil", err)
	}
}

func TestConfigureReplacesSchedules(t *testing.T) {
	m, _, _, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	opts.DBSchedule = "30 */4 * * *"
	if _, err := m.Configure(ctx, opts); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	config, err := m.compose.Read()
	if err != nil {
		t.Fatal(err)
	}
	got := config.Services[ServiceName].Labels["ofelia.job-exec.shopfloor-db-backup.schedule"]
	if got != "30 */4 * * *" {
		t.Errorf("schedule after configure = %q, want replacement applied", got)
	}
}

func TestConfigureRejectsInvalidScheduleBeforeTeardown(t *testing.T) {
	m, _, _, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	bad := opts
	bad.FilesSchedule = "99 * * * *"
	if _, err := m.Configure(ctx, bad); err == nil {
		t.Fatal("Configure accepted an invalid schedule")
	}

	// The existing configuration must survive a rejected replacement.
	if state, _ := m.State(ctx); state == StateAbsent {
		t.Error("rejected configure tore down the existing configuration")
	}
}

func TestRunRequiresConfiguration(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	err := m.Run(context.Background(), RunFilter{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Run on absent configuration = %v, want ErrNotConfigured", err)
	}
}

func TestRunDBOnlySkipsFilesScript(t *testing.T) {
	m, runner, _, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	runner.Calls = nil

	if err := m.Run(ctx, RunFilter{DBOnly: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !runner.CalledWith("db-backup.sh") {
		t.Error("db script was not executed")
	}
	if runner.CalledWith("files-backup.sh") {
		t.Error("--db-only run executed the files script")
	}
}

func TestRunExecutesInsideSchedulerContainer(t *testing.T) {
	m, runner, _, opts := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, opts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	runner.Calls = nil

	if err := m.Run(ctx, RunFilter{FilesOnly: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !runner.CalledWith("docker exec " + m.inst.SchedulerContainerName()) {
		t.Errorf("run did not exec through the scheduler container: %v", runner.Calls)
	}
}
