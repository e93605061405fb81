package usecase

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// PinLength is the number of digits collected before verification.
const PinLength = domain.PinLength

var (
	// ErrInvalidDigit is returned for keypad input outside 0-9.
	ErrInvalidDigit = errors.New("digit must be between 0 and 9")

	// ErrSessionClosed is returned for input after the gate unlocked.
	ErrSessionClosed = errors.New("PIN gate session already unlocked")
)

// GateState is the state of a PIN gate session.
type GateState int

const (
	StateCollecting GateState = iota
	StateVerifying
	StateUnlocked
)

func (s GateState) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateVerifying:
		return "verifying"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// ResultSink receives the outcome of every completed verification.
type ResultSink interface {
	OnPinGateResult(id domain.AppID, result domain.GateResult) error
}

// PinGate collects keypad digits for one intercepted application.
// There is no cancel transition: a session ends only by unlocking.
type PinGate struct {
	mu          sync.Mutex
	sessionID   uuid.UUID
	target      domain.AppID
	buffer      []byte
	state       GateState
	credentials domain.CredentialStore
	sink        ResultSink
	logger      *zap.Logger
}

// NewPinGate opens a session bound to target in Collecting(empty).
func NewPinGate(target domain.AppID, credentials domain.CredentialStore, sink ResultSink, logger *zap.Logger) *PinGate {
	g := &PinGate{
		sessionID:   uuid.New(),
		target:      target,
		buffer:      make([]byte, 0, PinLength),
		state:       StateCollecting,
		credentials: credentials,
		sink:        sink,
		logger:      logger,
	}
	g.logger.Debug("PIN gate opened",
		zap.String("session", g.sessionID.String()),
		zap.String("app", string(target)))
	return g
}

// PressDigit appends d to the buffer. The PinLength-th digit triggers
// verification synchronously. Input on a full buffer is ignored.
func (g *PinGate) PressDigit(d int) (domain.GateResult, error) {
	if d < 0 || d > 9 {
		return domain.GateResult{}, ErrInvalidDigit
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateUnlocked {
		return domain.GateResult{Outcome: domain.GateUnlocked}, ErrSessionClosed
	}
	if len(g.buffer) >= PinLength {
		return domain.GateResult{Outcome: domain.GatePending}, nil
	}

	g.buffer = append(g.buffer, byte('0'+d))
	if len(g.buffer) < PinLength {
		return domain.GateResult{Outcome: domain.GatePending}, nil
	}

	g.state = StateVerifying
	return g.verify(), nil
}

// PressDelete removes the last digit; a no-op on an empty buffer.
func (g *PinGate) PressDelete() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateCollecting || len(g.buffer) == 0 {
		return
	}
	g.buffer[len(g.buffer)-1] = 0
	g.buffer = g.buffer[:len(g.buffer)-1]
}

// verify runs with g.mu held and leaves the gate in Unlocked or Collecting(empty).
func (g *PinGate) verify() domain.GateResult {
	candidate := string(g.buffer)
	g.clear()

	ok, err := g.credentials.Verify(candidate)

	var result domain.GateResult
	switch {
	case errors.Is(err, domain.ErrNoCredential):
		result = domain.GateResult{Outcome: domain.GateRejected, Reason: domain.RejectNoCredential}
	case err != nil:
		g.logger.Error("credential verification failed",
			zap.String("session", g.sessionID.String()),
			zap.Error(err))
		result = domain.GateResult{Outcome: domain.GateRejected, Reason: domain.RejectStoreFailure}
	case ok:
		result = domain.GateResult{Outcome: domain.GateUnlocked}
	default:
		result = domain.GateResult{Outcome: domain.GateRejected, Reason: domain.RejectWrongPin}
	}

	if result.Outcome == domain.GateUnlocked {
		g.state = StateUnlocked
	} else {
		g.state = StateCollecting
	}

	g.logger.Info("PIN verified",
		zap.String("session", g.sessionID.String()),
		zap.String("app", string(g.target)),
		zap.String("outcome", result.Outcome.String()),
		zap.String("reason", string(result.Reason)))

	if g.sink != nil {
		if err := g.sink.OnPinGateResult(g.target, result); err != nil && result.Outcome == domain.GateUnlocked {
			result.ResumeErr = err
		}
	}
	return result
}

func (g *PinGate) clear() {
	for i := range g.buffer {
		g.buffer[i] = 0
	}
	g.buffer = g.buffer[:0]
}

// Len returns the number of digits collected so far.
func (g *PinGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buffer)
}

// State returns the current session state.
func (g *PinGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Target returns the application this session guards.
func (g *PinGate) Target() domain.AppID {
	return g.target
}

// SessionID identifies the session in logs.
func (g *PinGate) SessionID() string {
	return g.sessionID.String()
}
