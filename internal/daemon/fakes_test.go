package daemon

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/monitor"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
)

// memRegistry is a concurrency-safe in-memory domain.LockRegistry
type memRegistry struct {
	mu         sync.Mutex
	monitoring bool
	locked     map[domain.AppID]bool
	temp       map[domain.AppID]bool
	reloads    int
}

func newMemRegistry(locked ...domain.AppID) *memRegistry {
	r := &memRegistry{
		monitoring: true,
		locked:     make(map[domain.AppID]bool),
		temp:       make(map[domain.AppID]bool),
	}
	for _, id := range locked {
		r.locked[id] = true
	}
	return r
}

func (r *memRegistry) MonitoringEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.monitoring
}

func (r *memRegistry) SetMonitoringEnabled(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monitoring = enabled
	return nil
}

func (r *memRegistry) IsLocked(id domain.AppID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked[id]
}

func (r *memRegistry) LockedApps() []domain.AppID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AppID
	for id := range r.locked {
		out = append(out, id)
	}
	return out
}

func (r *memRegistry) SetLockedApps(ids []domain.AppID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = make(map[domain.AppID]bool)
	for _, id := range ids {
		r.locked[id] = true
	}
	return nil
}

func (r *memRegistry) IsTemporarilyUnlocked(id domain.AppID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.temp[id]
}

func (r *memRegistry) TemporarilyUnlocked() []domain.AppID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AppID
	for id := range r.temp {
		out = append(out, id)
	}
	return out
}

func (r *memRegistry) AddTemporaryUnlock(id domain.AppID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temp[id] = true
	return nil
}

func (r *memRegistry) RemoveTemporaryUnlock(id domain.AppID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.temp, id)
	return nil
}

func (r *memRegistry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads++
	return nil
}

func (r *memRegistry) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

// noCredentials always fails closed
type noCredentials struct{}

func (noCredentials) HasCredential() bool         { return false }
func (noCredentials) Verify(string) (bool, error) { return false, domain.ErrNoCredential }
func (noCredentials) SetPin(string) error         { return nil }

// selfExempt exempts only the locker itself
type selfExempt struct{}

func (selfExempt) IsExempt(id domain.AppID) bool { return id == "applock" }

// syncScheduler runs both interception phases inline
type syncScheduler struct{}

func (syncScheduler) After(_ time.Duration, fn func()) { fn() }

// recordingCollab records collaborator calls
type recordingCollab struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCollab) add(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *recordingCollab) Suppress() error {
	c.add("suppress")
	return nil
}

func (c *recordingCollab) PresentGate(id domain.AppID) error {
	c.add("gate:" + string(id))
	return nil
}

func (c *recordingCollab) Resume(id domain.AppID) error {
	c.add("resume:" + string(id))
	return nil
}

func (c *recordingCollab) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// scriptSource emits a fixed script, then either ends or blocks
type scriptSource struct {
	events []domain.RawEvent
	block  bool
}

func (s *scriptSource) Name() string { return "script" }

func (s *scriptSource) Run(ctx context.Context, emit func(domain.RawEvent)) error {
	for _, ev := range s.events {
		emit(ev)
	}
	if s.block {
		<-ctx.Done()
	}
	return nil
}

// flakySource fails a number of times before emitting and blocking
type flakySource struct {
	mu       sync.Mutex
	failures int
	runs     int
	event    domain.RawEvent
}

func (s *flakySource) Name() string { return "flaky" }

func (s *flakySource) Run(ctx context.Context, emit func(domain.RawEvent)) error {
	s.mu.Lock()
	s.runs++
	fail := s.runs <= s.failures
	s.mu.Unlock()

	if fail {
		return errors.New("display connection lost")
	}
	emit(s.event)
	<-ctx.Done()
	return nil
}

func (s *flakySource) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// fakeMonitors is an in-memory domain.MonitorRegistry
type fakeMonitors struct {
	mu          sync.Mutex
	record      *domain.MonitorRecord
	heartbeats  int
	registerErr error
}

func (m *fakeMonitors) RegisterMonitor(rec domain.MonitorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	m.record = &rec
	return nil
}

func (m *fakeMonitors) UpdateHeartbeat() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats++
	return nil
}

func (m *fakeMonitors) GetMonitor() (*domain.MonitorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record, nil
}

func (m *fakeMonitors) ClearMonitor() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

func (m *fakeMonitors) Heartbeats() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heartbeats
}

// callbackWatcher fires its callback once, then waits
type callbackWatcher struct {
	onChange func()
}

func (w *callbackWatcher) Run(ctx context.Context) error {
	w.onChange()
	<-ctx.Done()
	return nil
}

// fakePM reports the test process
type fakePM struct{}

func (fakePM) NameOf(int) (string, string, error) { return "applock", "", nil }
func (fakePM) IsRunning(int) bool                 { return true }
func (fakePM) GetCurrentPID() int                 { return os.Getpid() }

type serviceFixture struct {
	svc      *Service
	registry *memRegistry
	collab   *recordingCollab
	monitors *fakeMonitors
}

func newServiceFixture(config ServiceConfig, source domain.EventSource, locked ...domain.AppID) *serviceFixture {
	f := &serviceFixture{
		registry: newMemRegistry(locked...),
		collab:   &recordingCollab{},
		monitors: &fakeMonitors{},
	}
	logger := zap.NewNop()
	engine := usecase.NewEngine(
		usecase.DefaultEngineConfig(),
		f.registry,
		noCredentials{},
		selfExempt{},
		usecase.Collaborators{Suppressor: f.collab, Presenter: f.collab, Launcher: f.collab},
		syncScheduler{},
		logger,
	)
	f.svc = NewService(config, source, monitor.NewForeground(logger), engine, f.monitors, nil, fakePM{}, logger)
	return f
}

func windowEvent(pkg string) domain.RawEvent {
	return domain.RawEvent{Kind: domain.KindWindowStateChanged, PackageName: pkg}
}
