package execute

import (
	"context"
	"strings"
	"sync"
)

// FakeResult is a canned response for a recorded command.
type FakeResult struct {
	Stdout string
	Stderr string
	Err    error
}

// FakeRunner records invocations and serves canned results, keyed by the
// joined command line. Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu      sync.Mutex
	Results map[string]FakeResult
	Calls   []string
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Results: make(map[string]FakeResult)}
}

func (f *FakeRunner) key(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.key(name, args)
	f.Calls = append(f.Calls, k)
	res := f.Results[k]
	return res.Stdout, res.Stderr, res.Err
}

func (f *FakeRunner) RunInDir(ctx context.Context, _ string, name string, args ...string) (string, string, error) {
	return f.Run(ctx, name, args...)
}

func (f *FakeRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	_, _, err := f.Run(ctx, name, args...)
	return err
}

// CalledWith reports whether any recorded call contains substr.
func (f *FakeRunner) CalledWith(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}
