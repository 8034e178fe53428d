package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
)

// Conventional file names inside an infrastructure directory. The
// directory itself is hidden under the owner's home (".<name>"), matching
// the layout the clone process produces.
const (
	EnvFileName     = ".env"
	ComposeFileName = "docker-compose.yml"
	ScriptsDirName  = "backup-scripts"
	DatabaseDirName = "database"
	lockFileName    = ".backup.lock"
)

// ErrNotFound reports that the named infrastructure has no local directory.
type ErrNotFound struct {
	Name string
	Dir  string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("infrastructure '%s' not found (expected directory %s)", e.Name, e.Dir)
}

// Instance is one named infrastructure mirrored from production.
type Instance struct {
	Name string
	Dir  string

	lock *flock.Flock
}

// Resolve locates the infrastructure directory for name under root and
// fails if it does not exist. An empty root defaults to the user's home.
func Resolve(root, name string) (*Instance, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root = home
	}

	dir := filepath.Join(root, "."+name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &ErrNotFound{Name: name, Dir: dir}
	}

	return &Instance{Name: name, Dir: dir}, nil
}

// Dir helpers. Paths are computed, not checked; callers that need the
// artifact to exist stat it themselves.

func (i *Instance) ComposePath() string { return filepath.Join(i.Dir, ComposeFileName) }
func (i *Instance) EnvPath() string     { return filepath.Join(i.Dir, EnvFileName) }
func (i *Instance) ScriptsDir() string  { return filepath.Join(i.Dir, ScriptsDirName) }
func (i *Instance) DatabaseDir() string { return filepath.Join(i.Dir, DatabaseDirName) }

// HasScripts reports whether the backup-scripts directory exists.
func (i *Instance) HasScripts() bool {
	info, err := os.Stat(i.ScriptsDir())
	return err == nil && info.IsDir()
}

// Env loads the infrastructure's .env file. A missing file yields an
// empty map, not an error: a cloned instance may not carry one yet.
func (i *Instance) Env() (map[string]string, error) {
	env, err := godotenv.Read(i.EnvPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", i.EnvPath(), err)
	}
	return env, nil
}

// Lock takes the per-instance advisory lock. Lifecycle commands hold it
// for their whole duration so concurrent add/remove/config invocations
// cannot interleave compose mutations.
func (i *Instance) Lock() error {
	if i.lock == nil {
		i.lock = flock.New(filepath.Join(i.Dir, lockFileName))
	}
	locked, err := i.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", i.Name, err)
	}
	if !locked {
		return fmt.Errorf("another devinfra command is already operating on '%s'", i.Name)
	}
	return nil
}

// Unlock releases the advisory lock. Safe to call when not held.
func (i *Instance) Unlock() {
	if i.lock != nil {
		_ = i.lock.Unlock()
	}
}

// SchedulerContainerName returns the container name of the per-instance
// backup-scheduler service.
func (i *Instance) SchedulerContainerName() string {
	return i.Name + "_backup-scheduler"
}
