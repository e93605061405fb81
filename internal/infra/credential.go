package infra

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// HashParams are the argon2id cost parameters.
type HashParams struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultHashParams returns the argon2id parameters used for new PINs.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:  64 * 1024,
		Time:    1,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// PinCredentialStore implements domain.CredentialStore on top of a
// KeyValueStore. Stored values are argon2id PHC strings; bare 64-char
// SHA-256 hex digests written by older versions are still accepted and
// upgraded on the next successful verification.
type PinCredentialStore struct {
	store  domain.KeyValueStore
	params HashParams
	logger *zap.Logger
}

// NewPinCredentialStore creates a credential store with default parameters.
func NewPinCredentialStore(store domain.KeyValueStore, logger *zap.Logger) *PinCredentialStore {
	return NewPinCredentialStoreWithParams(store, DefaultHashParams(), logger)
}

// NewPinCredentialStoreWithParams creates a credential store with custom cost (for testing).
func NewPinCredentialStoreWithParams(store domain.KeyValueStore, params HashParams, logger *zap.Logger) *PinCredentialStore {
	return &PinCredentialStore{store: store, params: params, logger: logger}
}

// HasCredential reports whether a PIN hash is stored.
func (c *PinCredentialStore) HasCredential() bool {
	v, err := c.store.GetString(KeyAppPin)
	return err == nil && v != ""
}

// Verify compares candidate with the stored hash in constant time.
func (c *PinCredentialStore) Verify(candidate string) (bool, error) {
	stored, err := c.store.GetString(KeyAppPin)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && stored == "") {
		return false, domain.ErrNoCredential
	}
	if err != nil {
		return false, fmt.Errorf("failed to read PIN hash: %w", err)
	}

	if isLegacyHash(stored) {
		sum := sha256.Sum256([]byte(candidate))
		ok := subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(stored))) == 1
		if ok {
			if err := c.SetPin(candidate); err != nil {
				c.logger.Warn("failed to upgrade legacy PIN hash", zap.Error(err))
			}
		}
		return ok, nil
	}

	return verifyArgon2(stored, candidate)
}

// SetPin stores a fresh salted hash, discarding the previous one.
func (c *PinCredentialStore) SetPin(plaintext string) error {
	encoded, err := hashArgon2(plaintext, c.params)
	if err != nil {
		return err
	}
	return c.store.SetString(KeyAppPin, encoded)
}

func hashArgon2(plaintext string, p HashParams) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func verifyArgon2(encoded, candidate string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("unrecognized PIN hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid PIN hash version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var p HashParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return false, fmt.Errorf("invalid PIN hash parameters: %w", err)
	}

	if err := checkHashParams(p); err != nil {
		return false, err
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("invalid PIN hash salt: %w", err)
	}
	want, err := b64.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("invalid PIN hash: %w", err)
	}
	if len(salt) == 0 || len(want) == 0 || len(want) > maxHashKeyLen {
		return false, fmt.Errorf("invalid PIN hash: salt %d bytes, key %d bytes", len(salt), len(want))
	}

	got := argon2.IDKey([]byte(candidate), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Bounds on stored cost parameters; argon2.IDKey panics below the minimums.
const (
	maxHashMemory = 1024 * 1024 // KiB
	maxHashTime   = 16
	maxHashKeyLen = 128
)

func checkHashParams(p HashParams) error {
	if p.Time == 0 || p.Time > maxHashTime {
		return fmt.Errorf("invalid PIN hash time cost %d", p.Time)
	}
	if p.Threads == 0 {
		return fmt.Errorf("invalid PIN hash parallelism %d", p.Threads)
	}
	if p.Memory == 0 || p.Memory > maxHashMemory {
		return fmt.Errorf("invalid PIN hash memory cost %d", p.Memory)
	}
	return nil
}

func isLegacyHash(stored string) bool {
	if len(stored) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// Ensure PinCredentialStore implements domain.CredentialStore.
var _ domain.CredentialStore = (*PinCredentialStore)(nil)
