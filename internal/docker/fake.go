package docker

import (
	"context"
	"sync"
)

// FakeClient is an in-memory Client for tests.
type FakeClient struct {
	mu         sync.Mutex
	Containers map[string]Summary
	Removed    []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{Containers: make(map[string]Summary)}
}

// Add registers a container. state is the docker state string ("running",
// "exited").
func (f *FakeClient) Add(name, state string, labels map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Containers[name] = Summary{Name: name, State: state, Labels: labels}
}

func (f *FakeClient) State(_ context.Context, name string) (ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctr, ok := f.Containers[name]
	if !ok {
		return StateAbsent, nil
	}
	if ctr.State == "running" {
		return StateRunning, nil
	}
	return StateStopped, nil
}

func (f *FakeClient) ForceRemove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Containers, name)
	f.Removed = append(f.Removed, name)
	return nil
}

func (f *FakeClient) List(_ context.Context) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Summary, 0, len(f.Containers))
	for _, ctr := range f.Containers {
		out = append(out, ctr)
	}
	return out, nil
}
