// Package usecase contains application business logic.
package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// DefaultGateDelay lets the home surface render before the gate appears.
const DefaultGateDelay = 150 * time.Millisecond

// EngineConfig holds decision engine configuration.
type EngineConfig struct {
	GateDelay time.Duration // Delay between suppression and gate presentation
}

// DefaultEngineConfig returns default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		GateDelay: DefaultGateDelay,
	}
}

// Collaborators are the one-way side-effect targets of the engine.
type Collaborators struct {
	Suppressor domain.ForegroundSuppressor
	Presenter  domain.GatePresenter
	Launcher   domain.AppLauncher
}

// Engine is the lock decision engine. Every read-decide-write against the
// registry, and every administrative change, runs under one mutex so that a
// decision never observes a half-applied update.
type Engine struct {
	mu          sync.Mutex
	config      EngineConfig
	registry    domain.LockRegistry
	credentials domain.CredentialStore
	exemptions  domain.ExemptionPolicy
	collab      Collaborators
	scheduler   domain.Scheduler
	logger      *zap.Logger
}

// NewEngine creates a new lock decision engine.
func NewEngine(
	config EngineConfig,
	registry domain.LockRegistry,
	credentials domain.CredentialStore,
	exemptions domain.ExemptionPolicy,
	collab Collaborators,
	scheduler domain.Scheduler,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		config:      config,
		registry:    registry,
		credentials: credentials,
		exemptions:  exemptions,
		collab:      collab,
		scheduler:   scheduler,
		logger:      logger,
	}
}

// Decide classifies a switch event and, for a locked target, requests
// foreground suppression followed by the delayed PIN gate.
func (e *Engine) Decide(ev domain.SwitchEvent) domain.Decision {
	d := e.decide(ev)

	if d.Action == domain.ActionInterceptAndGate {
		e.intercept(d.Target)
	}
	return d
}

func (e *Engine) decide(ev domain.SwitchEvent) domain.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.MonitoringEnabled() {
		return domain.Decision{Action: domain.ActionAllow, Reason: domain.AllowMonitoringDisabled}
	}

	var d domain.Decision

	// Grace window ends the moment the user leaves the app.
	if ev.Previous != "" && ev.Previous != ev.Current && e.registry.IsTemporarilyUnlocked(ev.Previous) {
		if err := e.registry.RemoveTemporaryUnlock(ev.Previous); err != nil {
			e.logger.Warn("failed to persist re-arm",
				zap.String("app", string(ev.Previous)),
				zap.Error(err))
		}
		d.Rearmed = ev.Previous
		e.logger.Info("re-armed interception",
			zap.String("app", string(ev.Previous)))
	}

	switch {
	case e.exemptions.IsExempt(ev.Current):
		d.Action, d.Reason = domain.ActionAllow, domain.AllowExempt
	case !e.registry.IsLocked(ev.Current):
		d.Action, d.Reason = domain.ActionAllow, domain.AllowNotLocked
	case e.registry.IsTemporarilyUnlocked(ev.Current):
		d.Action, d.Reason = domain.ActionAllow, domain.AllowGraceWindow
		e.logger.Debug("app is temporarily unlocked",
			zap.String("app", string(ev.Current)))
	default:
		d.Action, d.Target = domain.ActionInterceptAndGate, ev.Current
	}
	return d
}

// intercept suppresses the foreground first and only then schedules the
// gate, so the locked app's UI is never visible behind a missing gate.
func (e *Engine) intercept(target domain.AppID) {
	e.logger.Info("locked app detected, intercepting",
		zap.String("app", string(target)))

	if err := e.collab.Suppressor.Suppress(); err != nil {
		e.logger.Warn("foreground suppression failed",
			zap.String("app", string(target)),
			zap.Error(err))
	}

	e.scheduler.After(e.config.GateDelay, func() {
		if err := e.collab.Presenter.PresentGate(target); err != nil {
			e.logger.Error("failed to present PIN gate",
				zap.String("app", string(target)),
				zap.Error(err))
		}
	})
}

// OnPinGateResult grants the grace window on unlock and asks the launcher
// to resume the target. A resume failure is returned but leaves the grace
// window in place; the user can reopen the app manually.
func (e *Engine) OnPinGateResult(id domain.AppID, result domain.GateResult) error {
	if result.Outcome != domain.GateUnlocked {
		e.logger.Info("PIN rejected",
			zap.String("app", string(id)),
			zap.String("reason", string(result.Reason)))
		return nil
	}

	e.mu.Lock()
	err := e.registry.AddTemporaryUnlock(id)
	e.mu.Unlock()
	if err != nil {
		e.logger.Warn("failed to persist temporary unlock",
			zap.String("app", string(id)),
			zap.Error(err))
	}

	e.logger.Info("app unlocked", zap.String("app", string(id)))

	if err := e.collab.Launcher.Resume(id); err != nil {
		e.logger.Error("failed to resume app",
			zap.String("app", string(id)),
			zap.Error(err))
		return err
	}
	return nil
}

// OpenGate starts a PIN gate session whose result flows back into the engine.
func (e *Engine) OpenGate(target domain.AppID) *PinGate {
	return NewPinGate(target, e.credentials, e, e.logger)
}
