package scheduler

import (
	"context"
	"testing"

	"devinfra-cli/internal/docker"
)

func TestValidateSchedule(t *testing.T) {
	valid := []string{"@hourly", "@daily", "0 2 * * *", "0 */2 * * *", "*/15 * * * *"}
	for _, expr := range valid {
		if err := ValidateSchedule(expr); err != nil {
			t.Errorf("expected %q to be valid: %v", expr, err)
		}
	}

	invalid := []string{"", "not-a-cron", "61 * * * *", "* * * *", "@fortnightly"}
	for _, expr := range invalid {
		if err := ValidateSchedule(expr); err == nil {
			t.Errorf("expected %q to be rejected", expr)
		}
	}
}

func TestJobLabels(t *testing.T) {
	labels := JobLabels("shopfloor-db-backup", "0 */2 * * *", "/home/dev/.shopfloor/backup-scripts/db-backup.sh")

	if labels["ofelia.enabled"] != "true" {
		t.Error("job labels must enable the daemon for the container")
	}
	// The schedule annotation must hold the literal flag value.
	if got := labels["ofelia.job-exec.shopfloor-db-backup.schedule"]; got != "0 */2 * * *" {
		t.Errorf("schedule label = %q, want literal expression", got)
	}
	if labels["ofelia.job-exec.shopfloor-db-backup.no-overlap"] != "true" {
		t.Error("jobs must be declared no-overlap")
	}
}

func TestDaemonAvailable(t *testing.T) {
	fake := docker.NewFakeClient()
	m := NewManager("ofelia", fake)

	ok, err := m.DaemonAvailable(context.Background())
	if err != nil {
		t.Fatalf("DaemonAvailable failed: %v", err)
	}
	if ok {
		t.Error("daemon should be unavailable when its container is absent")
	}

	fake.Add("ofelia", "exited", nil)
	if ok, _ = m.DaemonAvailable(context.Background()); ok {
		t.Error("a stopped daemon container is not available")
	}

	fake.Add("ofelia", "running", nil)
	if ok, _ = m.DaemonAvailable(context.Background()); !ok {
		t.Error("daemon should be available when running")
	}
}

func TestListJobsReconstructsDeclarations(t *testing.T) {
	fake := docker.NewFakeClient()
	fake.Add("shopfloor_backup-scheduler", "running", MergeLabels(
		JobLabels("shopfloor-db-backup", "@hourly", "/scripts/db-backup.sh"),
		JobLabels("shopfloor-files-backup", "0 2 * * *", "/scripts/files-backup.sh"),
	))
	fake.Add("unrelated", "running", map[string]string{"app": "web"})

	m := NewManager("ofelia", fake)
	jobs, err := m.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}

	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name != "shopfloor-db-backup" || jobs[0].Schedule != "@hourly" {
		t.Errorf("unexpected first job: %+v", jobs[0])
	}
	if jobs[1].Name != "shopfloor-files-backup" || jobs[1].Command != "/scripts/files-backup.sh" {
		t.Errorf("unexpected second job: %+v", jobs[1])
	}
	for _, job := range jobs {
		if !job.NoOverlap {
			t.Errorf("job %s lost its no-overlap flag", job.Name)
		}
	}
}
