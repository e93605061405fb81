package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	// StoreDBName is the encrypted database file inside the data directory.
	StoreDBName = "applock.db"
)

// KVStore implements domain.KeyValueStore and domain.MonitorRegistry
// using a SQLCipher encrypted SQLite database.
type KVStore struct {
	db     *sql.DB
	dbPath string
}

// NewKVStore opens (or creates) the encrypted store.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewKVStore(dataDir string, key []byte) (*KVStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, StoreDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096&_busy_timeout=5000",
		dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &KVStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *KVStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS monitor_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		last_heartbeat INTEGER NOT NULL,
		app_version TEXT DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *KVStore) Path() string {
	return s.dbPath
}

// --- domain.KeyValueStore implementation ---

// GetString returns domain.ErrNotFound when key is absent.
func (s *KVStore) GetString(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, nil
}

// SetString stores value under key.
func (s *KVStore) SetString(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO prefs (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// GetStringSet decodes a JSON array. An absent key is an empty set.
func (s *KVStore) GetStringSet(key string) ([]string, error) {
	raw, err := s.GetString(key)
	if errors.Is(err, domain.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSet(key, raw)
}

// SetStringSet encodes values as a JSON array.
func (s *KVStore) SetStringSet(key string, values []string) error {
	raw, err := encodeSet(key, values)
	if err != nil {
		return err
	}
	return s.SetString(key, raw)
}

// UpdateStringSet runs the read-modify-write under BEGIN IMMEDIATE, which
// takes the database write lock before the read.
func (s *KVStore) UpdateStringSet(key string, fn func(current []string) []string) ([]string, error) {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return nil, fmt.Errorf("failed to lock %q: %w", key, err)
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(ctx, `ROLLBACK`)
		}
	}()

	current := []string{}
	var raw string
	err = conn.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	default:
		if current, err = decodeSet(key, raw); err != nil {
			return nil, err
		}
	}

	next := fn(append([]string(nil), current...))
	if next == nil {
		next = []string{}
	}
	if sameSet(current, next) {
		return next, nil
	}

	encoded, err := encodeSet(key, next)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO prefs (key, value, updated_at) VALUES (?, ?, ?)`,
		key, encoded, time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", key, err)
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return nil, fmt.Errorf("failed to commit %q: %w", key, err)
	}
	committed = true
	return next, nil
}

func decodeSet(key, raw string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func encodeSet(key string, values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return string(raw), nil
}

// sameSet compares a and b ignoring order and duplicates.
func sameSet(a, b []string) bool {
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	other := make(map[string]bool, len(b))
	for _, v := range b {
		if !seen[v] {
			return false
		}
		other[v] = true
	}
	return len(seen) == len(other)
}

// GetBool returns def when key is absent.
func (s *KVStore) GetBool(key string, def bool) (bool, error) {
	raw, err := s.GetString(key)
	if errors.Is(err, domain.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return v, nil
}

// SetBool stores value under key.
func (s *KVStore) SetBool(key string, value bool) error {
	return s.SetString(key, strconv.FormatBool(value))
}

// Delete removes key. Deleting an absent key is not an error.
func (s *KVStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// --- domain.MonitorRegistry implementation ---

// RegisterMonitor records the running monitor, replacing any previous one.
func (s *KVStore) RegisterMonitor(rec domain.MonitorRecord) error {
	now := time.Now()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = now
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO monitor_state (id, pid, started_at, last_heartbeat, app_version)
		VALUES (1, ?, ?, ?, ?)`,
		rec.PID, rec.StartedAt.Unix(), now.Unix(), rec.AppVersion,
	)
	return err
}

// UpdateHeartbeat updates timestamp for liveness check.
func (s *KVStore) UpdateHeartbeat() error {
	result, err := s.db.Exec(`UPDATE monitor_state SET last_heartbeat = ? WHERE id = 1`,
		time.Now().Unix())
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("monitor not registered")
	}
	return nil
}

// GetMonitor returns nil when no monitor is registered.
func (s *KVStore) GetMonitor() (*domain.MonitorRecord, error) {
	var pid int
	var started, heartbeat int64
	var version string
	err := s.db.QueryRow(`SELECT pid, started_at, last_heartbeat, app_version FROM monitor_state WHERE id = 1`).
		Scan(&pid, &started, &heartbeat, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.MonitorRecord{
		PID:           pid,
		StartedAt:     time.Unix(started, 0),
		LastHeartbeat: time.Unix(heartbeat, 0),
		AppVersion:    version,
	}, nil
}

// ClearMonitor removes the monitor record (clean shutdown).
func (s *KVStore) ClearMonitor() error {
	_, err := s.db.Exec(`DELETE FROM monitor_state`)
	return err
}

// Close releases the database connection.
func (s *KVStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure KVStore implements both interfaces.
var _ domain.KeyValueStore = (*KVStore)(nil)
var _ domain.MonitorRegistry = (*KVStore)(nil)
