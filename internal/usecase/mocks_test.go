package usecase

import (
	"errors"
	"sort"
	"time"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// mockRegistry implements domain.LockRegistry in memory
type mockRegistry struct {
	monitoring bool
	locked     map[domain.AppID]bool
	temp       map[domain.AppID]bool
	writeErr   error
	reloadErr  error
	reloads    int
}

func newMockRegistry(monitoring bool, locked ...domain.AppID) *mockRegistry {
	r := &mockRegistry{
		monitoring: monitoring,
		locked:     make(map[domain.AppID]bool),
		temp:       make(map[domain.AppID]bool),
	}
	for _, id := range locked {
		r.locked[id] = true
	}
	return r
}

func (m *mockRegistry) MonitoringEnabled() bool { return m.monitoring }

func (m *mockRegistry) SetMonitoringEnabled(enabled bool) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.monitoring = enabled
	return nil
}

func (m *mockRegistry) IsLocked(id domain.AppID) bool { return m.locked[id] }

func (m *mockRegistry) LockedApps() []domain.AppID { return keys(m.locked) }

func (m *mockRegistry) SetLockedApps(ids []domain.AppID) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.locked = make(map[domain.AppID]bool)
	for _, id := range ids {
		m.locked[id] = true
	}
	return nil
}

func (m *mockRegistry) IsTemporarilyUnlocked(id domain.AppID) bool { return m.temp[id] }

func (m *mockRegistry) TemporarilyUnlocked() []domain.AppID { return keys(m.temp) }

func (m *mockRegistry) AddTemporaryUnlock(id domain.AppID) error {
	m.temp[id] = true
	return m.writeErr
}

func (m *mockRegistry) RemoveTemporaryUnlock(id domain.AppID) error {
	delete(m.temp, id)
	return m.writeErr
}

func (m *mockRegistry) Reload() error {
	m.reloads++
	return m.reloadErr
}

func keys(set map[domain.AppID]bool) []domain.AppID {
	out := make([]domain.AppID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// mockCredentials implements domain.CredentialStore with a plaintext PIN
type mockCredentials struct {
	pin       string
	verifyErr error
	verified  []string
}

func (m *mockCredentials) HasCredential() bool { return m.pin != "" }

func (m *mockCredentials) Verify(candidate string) (bool, error) {
	m.verified = append(m.verified, candidate)
	if m.verifyErr != nil {
		return false, m.verifyErr
	}
	if m.pin == "" {
		return false, domain.ErrNoCredential
	}
	return candidate == m.pin, nil
}

func (m *mockCredentials) SetPin(pin string) error {
	m.pin = pin
	return nil
}

// mockExemptions implements domain.ExemptionPolicy
type mockExemptions struct {
	exempt map[domain.AppID]bool
}

func (m *mockExemptions) IsExempt(id domain.AppID) bool { return m.exempt[id] }

// recorder implements all collaborators and records call order
type recorder struct {
	calls       []string
	suppressErr error
	presentErr  error
	resumeErr   error
}

func (r *recorder) Suppress() error {
	r.calls = append(r.calls, "suppress")
	return r.suppressErr
}

func (r *recorder) PresentGate(target domain.AppID) error {
	r.calls = append(r.calls, "gate:"+string(target))
	return r.presentErr
}

func (r *recorder) Resume(id domain.AppID) error {
	r.calls = append(r.calls, "resume:"+string(id))
	return r.resumeErr
}

// manualScheduler queues callbacks until Flush so tests can observe
// the state between the two interception phases
type manualScheduler struct {
	delays  []time.Duration
	pending []func()
}

func (s *manualScheduler) After(d time.Duration, fn func()) {
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, fn)
}

func (s *manualScheduler) Flush() {
	pending := s.pending
	s.pending = nil
	for _, fn := range pending {
		fn()
	}
}

// mockSink implements ResultSink
type mockSink struct {
	results []domain.GateResult
	err     error
}

func (m *mockSink) OnPinGateResult(id domain.AppID, result domain.GateResult) error {
	m.results = append(m.results, result)
	return m.err
}

var errStore = errors.New("store unavailable")
