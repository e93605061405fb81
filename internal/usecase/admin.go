package usecase

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// SetLockedApps replaces the lock set wholesale. Blank identifiers are dropped.
func (e *Engine) SetLockedApps(ids []domain.AppID) error {
	clean := make([]domain.AppID, 0, len(ids))
	seen := make(map[domain.AppID]bool, len(ids))
	for _, id := range ids {
		if id.IsBlank() || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.SetLockedApps(clean); err != nil {
		return fmt.Errorf("failed to set locked apps: %w", err)
	}
	e.logger.Info("locked apps updated", zap.Int("count", len(clean)))
	return nil
}

// SetMonitoringEnabled toggles interception globally.
func (e *Engine) SetMonitoringEnabled(enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.SetMonitoringEnabled(enabled); err != nil {
		return fmt.Errorf("failed to set monitoring flag: %w", err)
	}
	e.logger.Info("monitoring toggled", zap.Bool("enabled", enabled))
	return nil
}

// SetPin replaces the stored credential irreversibly.
func (e *Engine) SetPin(pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.credentials.SetPin(pin); err != nil {
		return fmt.Errorf("failed to store PIN: %w", err)
	}
	e.logger.Info("PIN updated")
	return nil
}

// TemporarilyUnlock opens the grace window outside the PIN gate flow
// (handoff from a companion UI).
func (e *Engine) TemporarilyUnlock(id domain.AppID) error {
	if id.IsBlank() {
		return fmt.Errorf("app identifier is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.AddTemporaryUnlock(id); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", id, err)
	}
	e.logger.Info("app temporarily unlocked", zap.String("app", string(id)))
	return nil
}

// ReEnableInterception closes the grace window for id.
func (e *Engine) ReEnableInterception(id domain.AppID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.RemoveTemporaryUnlock(id); err != nil {
		return fmt.Errorf("failed to re-enable interception for %s: %w", id, err)
	}
	e.logger.Info("re-enabled interception", zap.String("app", string(id)))
	return nil
}

// Refresh reloads the registry after another process changed the store.
func (e *Engine) Refresh() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Reload(); err != nil {
		return fmt.Errorf("failed to reload lock state: %w", err)
	}
	e.logger.Debug("lock state reloaded")
	return nil
}

// Status returns a consistent snapshot of the lock state.
func (e *Engine) Status() domain.LockStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	locked := e.registry.LockedApps()
	open := e.registry.TemporarilyUnlocked()
	sortIDs(locked)
	sortIDs(open)

	return domain.LockStatus{
		MonitoringEnabled: e.registry.MonitoringEnabled(),
		LockedApps:        locked,
		TemporarilyOpen:   open,
		PinConfigured:     e.credentials.HasCredential(),
	}
}

// ValidatePin checks that pin is exactly PinLength ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) != domain.PinLength {
		return domain.ErrInvalidPin
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return domain.ErrInvalidPin
		}
	}
	return nil
}

func sortIDs(ids []domain.AppID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
