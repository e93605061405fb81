package infra

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// Persisted preference keys.
const (
	KeyLockedApps          = "locked_apps"
	KeyMonitoringEnabled   = "accessibility_monitoring_enabled"
	KeyTemporarilyUnlocked = "temporarily_unlocked_apps"
	KeyAppPin              = "app_pin"
)

// LockStore implements domain.LockRegistry over a KeyValueStore shared with
// other applock processes. Only the lock set is cached (until Reload); the
// monitoring flag and the temporary-unlock set are read from the store on
// every call because the gate and admin commands change them out of process.
type LockStore struct {
	mu         sync.RWMutex
	store      domain.KeyValueStore
	monitoring bool // last value read, served when the store is unreadable
	locked     map[domain.AppID]struct{}
	logger     *zap.Logger
}

// NewLockStore loads the current state from store.
func NewLockStore(store domain.KeyValueStore, logger *zap.Logger) (*LockStore, error) {
	s := &LockStore{
		store:  store,
		locked: make(map[domain.AppID]struct{}),
		logger: logger,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the lock set and the monitoring flag.
func (s *LockStore) Reload() error {
	monitoring, err := s.store.GetBool(KeyMonitoringEnabled, false)
	if err != nil {
		return fmt.Errorf("failed to load monitoring flag: %w", err)
	}
	locked, err := s.store.GetStringSet(KeyLockedApps)
	if err != nil {
		return fmt.Errorf("failed to load locked apps: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitoring = monitoring
	s.locked = toSet(locked)

	s.logger.Debug("lock state loaded",
		zap.Bool("monitoring", monitoring),
		zap.Int("locked", len(s.locked)))
	return nil
}

// MonitoringEnabled reads the global interception switch. On a read
// failure the last value seen is returned.
func (s *LockStore) MonitoringEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled, err := s.store.GetBool(KeyMonitoringEnabled, false)
	if err != nil {
		s.logger.Warn("failed to read monitoring flag", zap.Error(err))
		return s.monitoring
	}
	s.monitoring = enabled
	return enabled
}

// SetMonitoringEnabled persists the switch.
func (s *LockStore) SetMonitoringEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetBool(KeyMonitoringEnabled, enabled); err != nil {
		return err
	}
	s.monitoring = enabled
	return nil
}

// IsLocked reports whether id is in the lock set.
func (s *LockStore) IsLocked(id domain.AppID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.locked[id]
	return ok
}

// LockedApps returns the lock set sorted.
func (s *LockStore) LockedApps() []domain.AppID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fromSet(s.locked)
}

// SetLockedApps replaces the lock set.
func (s *LockStore) SetLockedApps(ids []domain.AppID) error {
	next := make(map[domain.AppID]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetStringSet(KeyLockedApps, toStrings(next)); err != nil {
		return err
	}
	s.locked = next
	return nil
}

// IsTemporarilyUnlocked reports whether id is inside its grace window.
// An unreadable store counts as no grace window.
func (s *LockStore) IsTemporarilyUnlocked(id domain.AppID) bool {
	_, ok := s.readTemp()[id]
	return ok
}

// TemporarilyUnlocked returns the temporary-unlock set sorted.
func (s *LockStore) TemporarilyUnlocked() []domain.AppID {
	return fromSet(s.readTemp())
}

func (s *LockStore) readTemp() map[domain.AppID]struct{} {
	values, err := s.store.GetStringSet(KeyTemporarilyUnlocked)
	if err != nil {
		s.logger.Warn("failed to read temporary unlocks", zap.Error(err))
		return map[domain.AppID]struct{}{}
	}
	return toSet(values)
}

// AddTemporaryUnlock opens the grace window for id.
func (s *LockStore) AddTemporaryUnlock(id domain.AppID) error {
	_, err := s.store.UpdateStringSet(KeyTemporarilyUnlocked, func(current []string) []string {
		for _, v := range current {
			if v == string(id) {
				return current
			}
		}
		next := append(current, string(id))
		sort.Strings(next)
		return next
	})
	return err
}

// RemoveTemporaryUnlock closes the grace window for id. Removing an absent
// id writes nothing.
func (s *LockStore) RemoveTemporaryUnlock(id domain.AppID) error {
	_, err := s.store.UpdateStringSet(KeyTemporarilyUnlocked, func(current []string) []string {
		next := current[:0]
		for _, v := range current {
			if v != string(id) {
				next = append(next, v)
			}
		}
		return next
	})
	return err
}

func toSet(values []string) map[domain.AppID]struct{} {
	set := make(map[domain.AppID]struct{}, len(values))
	for _, v := range values {
		set[domain.AppID(v)] = struct{}{}
	}
	return set
}

func fromSet(set map[domain.AppID]struct{}) []domain.AppID {
	out := make([]domain.AppID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toStrings(set map[domain.AppID]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}

// Ensure LockStore implements domain.LockRegistry.
var _ domain.LockRegistry = (*LockStore)(nil)
