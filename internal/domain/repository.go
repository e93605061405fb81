package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoCredential means no PIN has been configured yet.
	ErrNoCredential = errors.New("no PIN configured")

	// ErrInvalidPin means a PIN is not exactly PinLength ASCII digits.
	ErrInvalidPin = errors.New("PIN must be exactly 4 digits")

	// ErrNoLaunchEntry means the launcher has no way to start the application.
	ErrNoLaunchEntry = errors.New("no launch entry point for application")

	// ErrNotFound is returned by the key-value store for missing keys.
	ErrNotFound = errors.New("key not found")
)

// KeyValueStore is the external persistent store.
// Implementation: SQLCipher encrypted database.
type KeyValueStore interface {
	// GetString returns ErrNotFound when the key is absent.
	GetString(key string) (string, error)
	SetString(key, value string) error

	// GetStringSet returns an empty slice when the key is absent.
	GetStringSet(key string) ([]string, error)
	SetStringSet(key string, values []string) error
	// UpdateStringSet applies fn to the stored set and writes the result in
	// one transaction, so concurrent writers from other processes are not
	// lost. Nothing is written when fn leaves the set unchanged.
	UpdateStringSet(key string, fn func(current []string) []string) ([]string, error)

	// GetBool returns def when the key is absent.
	GetBool(key string, def bool) (bool, error)
	SetBool(key string, value bool) error

	Delete(key string) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// LockRegistry holds the lock set, the temporary-unlock set and the
// monitoring flag. Callers serialize read-decide-write sequences themselves;
// individual calls are safe for concurrent use.
type LockRegistry interface {
	MonitoringEnabled() bool
	SetMonitoringEnabled(enabled bool) error

	IsLocked(id AppID) bool
	LockedApps() []AppID
	// SetLockedApps replaces the lock set wholesale.
	SetLockedApps(ids []AppID) error

	IsTemporarilyUnlocked(id AppID) bool
	TemporarilyUnlocked() []AppID
	AddTemporaryUnlock(id AppID) error
	RemoveTemporaryUnlock(id AppID) error

	// Reload re-reads all state from the backing store.
	Reload() error
}

// CredentialStore holds the hashed PIN.
type CredentialStore interface {
	// HasCredential reports whether a PIN has been set.
	HasCredential() bool

	// Verify compares the candidate PIN with the stored hash.
	// Returns ErrNoCredential when no PIN is set.
	Verify(candidate string) (bool, error)

	// SetPin stores a fresh hash, discarding the previous one.
	SetPin(plaintext string) error
}

// ExemptionPolicy decides whether an application can never be locked.
type ExemptionPolicy interface {
	IsExempt(id AppID) bool
}

// ForegroundSuppressor sends the user to a neutral surface (home screen).
type ForegroundSuppressor interface {
	Suppress() error
}

// GatePresenter shows the PIN gate for a target application.
type GatePresenter interface {
	PresentGate(target AppID) error
}

// AppLauncher brings an application back to the foreground.
type AppLauncher interface {
	Resume(id AppID) error
}

// Scheduler runs fn after a delay. Tests substitute a synchronous scheduler.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// EventSource produces raw foreground events until ctx is canceled.
type EventSource interface {
	// Name identifies the source in logs.
	Name() string

	// Run blocks, calling emit for every raw event.
	Run(ctx context.Context, emit func(RawEvent)) error
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// NameOf returns the process name and executable path of a PID.
	NameOf(pid int) (name string, exe string, err error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// MonitorRegistry records the running monitor for the status command.
type MonitorRegistry interface {
	RegisterMonitor(rec MonitorRecord) error
	UpdateHeartbeat() error
	GetMonitor() (*MonitorRecord, error)
	ClearMonitor() error
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
