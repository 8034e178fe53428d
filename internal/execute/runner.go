package execute

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner abstracts shelling out to external tools (docker compose, docker
// exec, rsync). Commands that mutate state take a context so a stalled
// external process can be interrupted.
type Runner interface {
	// Run executes name with args and returns stdout and stderr.
	Run(ctx context.Context, name string, args ...string) (string, string, error)
	// RunInDir is Run with an explicit working directory.
	RunInDir(ctx context.Context, dir, name string, args ...string) (string, string, error)
	// RunInteractive streams output to the terminal instead of capturing it.
	RunInteractive(ctx context.Context, name string, args ...string) error
}

// LocalRunner executes commands on the local host.
type LocalRunner struct{}

func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

func (r *LocalRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	return r.RunInDir(ctx, "", name, args...)
}

func (r *LocalRunner) RunInDir(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.String(), stderr.String(), err
}

func (r *LocalRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
