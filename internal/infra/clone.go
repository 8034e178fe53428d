package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"devinfra-cli/internal/auth"
	"devinfra-cli/internal/execute"
	"devinfra-cli/internal/logger"
)

// Remote is the SSH surface cloning needs.
type Remote interface {
	Execute(command string) (string, string, error)
	Close() error
}

// CloneOptions describe the production source of a clone.
type CloneOptions struct {
	Host string
	User string
	Port string
	// KeyPath is an explicit SSH private key; empty means agent plus the
	// default ~/.ssh keys.
	KeyPath string
	// RemoteDir is the infrastructure directory on the production host.
	// Default: /opt/<name>.
	RemoteDir string
}

// Cloner mirrors a production infrastructure directory to the local host.
// The transfer itself goes through rsync over ssh; the SSH client is used
// for preflight checks and for fetching the .env when rsync's filters
// missed it.
type Cloner struct {
	runner execute.Runner
	log    *logger.Logger
	dial   func(auth.Config) (Remote, error)
}

func NewCloner(runner execute.Runner, log *logger.Logger) *Cloner {
	return &Cloner{
		runner: runner,
		log:    log,
		dial: func(cfg auth.Config) (Remote, error) {
			return auth.Dial(cfg)
		},
	}
}

// Clone mirrors the named infrastructure from production into
// <root>/.<name>. Refuses when the target directory already exists so a
// re-run cannot clobber local state.
func (c *Cloner) Clone(ctx context.Context, root, name string, opts CloneOptions) (*Instance, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("clone: production host is required")
	}
	if opts.User == "" {
		opts.User = "root"
	}
	if opts.Port == "" {
		opts.Port = "22"
	}
	if opts.RemoteDir == "" {
		opts.RemoteDir = "/opt/" + name
	}

	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root = home
	}
	dir := filepath.Join(root, "."+name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("infrastructure '%s' already exists at %s; destroy it first", name, dir)
	}

	remote, err := c.dial(auth.Config{
		Hostname: opts.Host,
		Username: opts.User,
		Port:     opts.Port,
		KeyPath:  opts.KeyPath,
		UseAgent: true,
	})
	if err != nil {
		return nil, err
	}
	defer remote.Close()

	if _, stderr, err := remote.Execute("test -d " + opts.RemoteDir); err != nil {
		return nil, fmt.Errorf("remote directory %s not found on %s: %w (stderr: %s)",
			opts.RemoteDir, opts.Host, err, stderr)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	source := fmt.Sprintf("%s@%s:%s/", opts.User, opts.Host, strings.TrimSuffix(opts.RemoteDir, "/"))
	fmt.Printf("Syncing %s from %s...\n", opts.RemoteDir, opts.Host)
	if _, stderr, err := c.runner.Run(ctx, "rsync", "-az", "-e", "ssh -p "+opts.Port, source, dir+"/"); err != nil {
		return nil, fmt.Errorf("rsync failed: %w (stderr: %s)", err, stderr)
	}

	if err := c.ensureEnv(dir, opts, remote); err != nil {
		return nil, err
	}

	c.log.Infow("infrastructure cloned", "name", name, "host", opts.Host, "dir", dir)
	fmt.Printf("✓ Cloned %s to %s\n", name, dir)
	return Resolve(root, name)
}

// ensureEnv fetches the remote .env when the sync did not bring one over.
// Dotfiles are easy to lose to rsync exclude rules, and nothing in the
// backup lifecycle works without the DB credential.
func (c *Cloner) ensureEnv(dir string, opts CloneOptions, remote Remote) error {
	envPath := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		return nil
	}

	stdout, _, err := remote.Execute("cat " + opts.RemoteDir + "/" + EnvFileName)
	if err != nil {
		return fmt.Errorf("no .env in sync and remote fetch failed: %w", err)
	}
	if err := os.WriteFile(envPath, []byte(stdout), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envPath, err)
	}
	return nil
}
