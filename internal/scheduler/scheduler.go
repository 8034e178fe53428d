package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"devinfra-cli/internal/docker"
)

// Job declarations ride as labels on the backup-scheduler service and are
// consumed by the external job-scheduler daemon (ofelia). The daemon
// guarantees no-overlap per job; nothing here schedules anything itself.
const (
	labelEnabled   = "ofelia.enabled"
	labelJobPrefix = "ofelia.job-exec."
)

// Job is one scheduled job declaration reconstructed from labels.
type Job struct {
	Name      string
	Schedule  string
	Command   string
	Container string
	NoOverlap bool
}

// Manager queries the daemon and builds job label sets.
type Manager struct {
	daemonContainer string
	client          docker.Client
}

func NewManager(daemonContainer string, client docker.Client) *Manager {
	return &Manager{daemonContainer: daemonContainer, client: client}
}

// cronParser accepts standard five-field expressions plus descriptors
// like @hourly, matching what the daemon accepts.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule rejects expressions the daemon would choke on. Done
// before any compose mutation so a bad flag never lands in the file.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// DaemonAvailable reports whether the scheduler daemon's container is
// running.
func (m *Manager) DaemonAvailable(ctx context.Context) (bool, error) {
	state, err := m.client.State(ctx, m.daemonContainer)
	if err != nil {
		return false, err
	}
	return state == docker.StateRunning, nil
}

// JobLabels builds the label set declaring one no-overlap exec job.
func JobLabels(jobName, schedule, command string) map[string]string {
	prefix := labelJobPrefix + jobName
	return map[string]string{
		labelEnabled:           "true",
		prefix + ".schedule":   schedule,
		prefix + ".command":    command,
		prefix + ".no-overlap": "true",
	}
}

// MergeLabels folds several label sets into one; later sets win.
func MergeLabels(sets ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}

// ListJobs reconstructs job declarations from the labels of existing
// containers. This is the typed replacement for parsing daemon output.
func (m *Manager) ListJobs(ctx context.Context) ([]Job, error) {
	containers, err := m.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduler jobs: %w", err)
	}

	var jobs []Job
	for _, ctr := range containers {
		if ctr.Labels[labelEnabled] != "true" {
			continue
		}
		jobs = append(jobs, jobsFromLabels(ctr.Name, ctr.Labels)...)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, nil
}

func jobsFromLabels(containerName string, labels map[string]string) []Job {
	byName := make(map[string]*Job)
	for key, value := range labels {
		if !strings.HasPrefix(key, labelJobPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, labelJobPrefix)
		idx := strings.LastIndex(rest, ".")
		if idx < 0 {
			continue
		}
		name, field := rest[:idx], rest[idx+1:]

		job, ok := byName[name]
		if !ok {
			job = &Job{Name: name, Container: containerName}
			byName[name] = job
		}
		switch field {
		case "schedule":
			job.Schedule = value
		case "command":
			job.Command = value
		case "no-overlap":
			job.NoOverlap = value == "true"
		}
	}

	jobs := make([]Job, 0, len(byName))
	for _, job := range byName {
		jobs = append(jobs, *job)
	}
	return jobs
}
