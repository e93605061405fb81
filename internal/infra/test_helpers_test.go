package infra

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	names       map[int]string
	runningPIDs map[int]bool
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{
		names:       make(map[int]string),
		runningPIDs: make(map[int]bool),
	}
}

func (m *mockProcessManager) NameOf(pid int) (string, string, error) {
	name, ok := m.names[pid]
	if !ok {
		return "", "", errors.New("no such process")
	}
	return name, "/usr/bin/" + name, nil
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

// mockCommandRunner records commands and returns queued outputs
type mockCommandRunner struct {
	mu       sync.Mutex
	commands []string
	outputs  []string
	runErr   error
	startErr error
}

func (m *mockCommandRunner) record(name string, args []string) {
	m.commands = append(m.commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
}

func (m *mockCommandRunner) Run(name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(name, args)
	return m.runErr
}

// Output pops the next queued output; the last one repeats.
func (m *mockCommandRunner) Output(name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(name, args)
	if len(m.outputs) == 0 {
		return nil, errors.New("no display")
	}
	out := m.outputs[0]
	if len(m.outputs) > 1 {
		m.outputs = m.outputs[1:]
	}
	return []byte(out), nil
}

func (m *mockCommandRunner) Start(name string, args ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(name, args)
	return m.startErr
}

func (m *mockCommandRunner) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// memStore is an in-memory domain.KeyValueStore
type memStore struct {
	values   map[string]string
	sets     map[string][]string
	bools    map[string]bool
	readErr  error
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		values: make(map[string]string),
		sets:   make(map[string][]string),
		bools:  make(map[string]bool),
	}
}

func (m *memStore) GetString(key string) (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memStore) SetString(key, value string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.values[key] = value
	return nil
}

func (m *memStore) GetStringSet(key string) ([]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]string{}, m.sets[key]...), nil
}

func (m *memStore) SetStringSet(key string, values []string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.sets[key] = append([]string{}, values...)
	return nil
}

func (m *memStore) UpdateStringSet(key string, fn func([]string) []string) ([]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	current := append([]string{}, m.sets[key]...)
	next := fn(append([]string(nil), current...))
	if next == nil {
		next = []string{}
	}
	if sameSet(current, next) {
		return next, nil
	}
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.sets[key] = append([]string{}, next...)
	return next, nil
}

func (m *memStore) GetBool(key string, def bool) (bool, error) {
	if m.readErr != nil {
		return def, m.readErr
	}
	v, ok := m.bools[key]
	if !ok {
		return def, nil
	}
	return v, nil
}

func (m *memStore) SetBool(key string, value bool) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.bools[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	delete(m.values, key)
	delete(m.sets, key)
	delete(m.bools, key)
	return m.writeErr
}

func (m *memStore) Close() error { return nil }

var errDisk = errors.New("disk I/O error")

// Ensure test doubles implement their interfaces
var (
	_ domain.ProcessManager = (*mockProcessManager)(nil)
	_ domain.KeyValueStore  = (*memStore)(nil)
	_ CommandRunner         = (*mockCommandRunner)(nil)
)
