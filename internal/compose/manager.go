package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"devinfra-cli/internal/execute"
)

// Manager reads, mutates, and snapshots a docker-compose.yml, and drives
// the stack through the compose CLI. Mutations go through the typed model
// below; the file is never edited as text.
type Manager struct {
	path   string
	runner execute.Runner
}

// Config is the typed model of a compose file. Unknown top-level keys are
// preserved through the inline Raw map so a round trip does not drop them.
type Config struct {
	Version  string                 `yaml:"version,omitempty"`
	Services map[string]Service     `yaml:"services,omitempty"`
	Networks map[string]interface{} `yaml:"networks,omitempty"`
	Volumes  map[string]interface{} `yaml:"volumes,omitempty"`
	Raw      map[string]interface{} `yaml:",inline"`
}

// Service is one compose service definition.
type Service struct {
	Image         string                 `yaml:"image,omitempty"`
	ContainerName string                 `yaml:"container_name,omitempty"`
	Command       interface{}            `yaml:"command,omitempty"`
	Entrypoint    interface{}            `yaml:"entrypoint,omitempty"`
	Environment   interface{}            `yaml:"environment,omitempty"`
	Ports         []interface{}          `yaml:"ports,omitempty"`
	Volumes       []interface{}          `yaml:"volumes,omitempty"`
	Networks      interface{}            `yaml:"networks,omitempty"`
	DependsOn     interface{}            `yaml:"depends_on,omitempty"`
	Restart       string                 `yaml:"restart,omitempty"`
	Labels        map[string]string      `yaml:"labels,omitempty"`
	Raw           map[string]interface{} `yaml:",inline"`
}

// SnapshotInfo describes one snapshot copy of the compose file.
type SnapshotInfo struct {
	Path      string
	Timestamp time.Time
}

const snapshotTimeLayout = "20060102-150405"

func NewManager(composePath string, runner execute.Runner) *Manager {
	return &Manager{path: composePath, runner: runner}
}

func (m *Manager) Path() string { return m.path }

// Read parses the compose file into the typed model.
func (m *Manager) Read() (*Config, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}
	return &config, nil
}

// Write serializes the model back to the compose file.
func (m *Manager) Write(config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal compose config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write compose file: %w", err)
	}
	return nil
}

// HasService reports whether serviceName is declared.
func (m *Manager) HasService(serviceName string) (bool, error) {
	config, err := m.Read()
	if err != nil {
		return false, err
	}
	_, exists := config.Services[serviceName]
	return exists, nil
}

// AddService snapshots the compose file, then adds the service. Fails if
// the name is already declared; the caller decides the remediation.
func (m *Manager) AddService(serviceName string, service Service) error {
	config, err := m.Read()
	if err != nil {
		return err
	}
	if _, exists := config.Services[serviceName]; exists {
		return fmt.Errorf("service '%s' already exists in %s", serviceName, m.path)
	}

	if _, err := m.Snapshot(); err != nil {
		return err
	}

	if config.Services == nil {
		config.Services = make(map[string]Service)
	}
	config.Services[serviceName] = service
	return m.Write(config)
}

// RemoveService snapshots the compose file, then deletes the service.
// A missing service is treated as already satisfied: no snapshot, no
// write, removed=false.
func (m *Manager) RemoveService(serviceName string) (removed bool, err error) {
	config, err := m.Read()
	if err != nil {
		return false, err
	}
	if _, exists := config.Services[serviceName]; !exists {
		return false, nil
	}

	if _, err := m.Snapshot(); err != nil {
		return false, err
	}

	delete(config.Services, serviceName)
	return true, m.Write(config)
}

// Snapshot copies the compose file to a timestamped sibling.
func (m *Manager) Snapshot() (*SnapshotInfo, error) {
	now := time.Now()
	backupPath := fmt.Sprintf("%s.backup.%s", m.path, now.Format(snapshotTimeLayout))

	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file for snapshot: %w", err)
	}
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	return &SnapshotInfo{Path: backupPath, Timestamp: now}, nil
}

// Restore overwrites the compose file with a snapshot's content.
func (m *Manager) Restore(snapshotPath string) error {
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshots next to the compose file, oldest first.
func (m *Manager) ListSnapshots() ([]SnapshotInfo, error) {
	matches, err := filepath.Glob(m.path + ".backup.*")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snapshots := make([]SnapshotInfo, 0, len(matches))
	for _, match := range matches {
		suffix := strings.TrimPrefix(match, m.path+".backup.")
		ts, err := time.Parse(snapshotTimeLayout, suffix)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, SnapshotInfo{Path: match, Timestamp: ts})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// Up brings the stack up detached, picking up compose file changes.
func (m *Manager) Up(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	if _, stderr, err := m.runner.RunInDir(ctx, dir, "docker", "compose", "up", "-d", "--remove-orphans"); err != nil {
		return fmt.Errorf("docker compose up failed: %w (stderr: %s)", err, stderr)
	}
	return nil
}

// Down stops and removes the stack's containers.
func (m *Manager) Down(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	if _, stderr, err := m.runner.RunInDir(ctx, dir, "docker", "compose", "down"); err != nil {
		return fmt.Errorf("docker compose down failed: %w (stderr: %s)", err, stderr)
	}
	return nil
}

// Restart is Down followed by Up.
func (m *Manager) Restart(ctx context.Context) error {
	if err := m.Down(ctx); err != nil {
		return err
	}
	return m.Up(ctx)
}
