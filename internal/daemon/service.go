// Package daemon runs the app-lock monitor service.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/monitor"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
)

// ErrAlreadyRunning is returned by Start on a running service.
var ErrAlreadyRunning = errors.New("monitor service already running")

// ServiceConfig holds monitor service configuration.
type ServiceConfig struct {
	RestartDelay      time.Duration // Wait before restarting a failed event source
	HeartbeatInterval time.Duration // How often to update the monitor record
	AppVersion        string
}

// DefaultServiceConfig returns default service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RestartDelay:      2 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// ChangeWatcher blocks until ctx is canceled, invoking its callback on
// external store changes. Implementation: infra.StoreWatcher.
type ChangeWatcher interface {
	Run(ctx context.Context) error
}

// Service pumps foreground events from a source through the monitor and
// the decision engine. It restarts the source after failures, reloads lock
// state when another process changes the store, and heartbeats.
type Service struct {
	config   ServiceConfig
	source   domain.EventSource
	monitor  *monitor.Foreground
	engine   *usecase.Engine
	monitors domain.MonitorRegistry
	watcher  ChangeWatcher
	pm       domain.ProcessManager
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// NewService creates a monitor service. monitors and watcher may be nil.
func NewService(
	config ServiceConfig,
	source domain.EventSource,
	fg *monitor.Foreground,
	engine *usecase.Engine,
	monitors domain.MonitorRegistry,
	watcher ChangeWatcher,
	pm domain.ProcessManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		config:   config,
		source:   source,
		monitor:  fg,
		engine:   engine,
		monitors: monitors,
		watcher:  watcher,
		pm:       pm,
		logger:   logger,
	}
}

// Engine exposes the decision engine to the administrative layer.
func (s *Service) Engine() *usecase.Engine {
	return s.engine
}

// Subscribe registers the single notification subscriber.
func (s *Service) Subscribe(fn func(domain.Notification)) (unsubscribe func()) {
	return s.monitor.Subscribe(fn)
}

// Dispatch feeds one raw event through the monitor and the engine.
func (s *Service) Dispatch(raw domain.RawEvent) {
	sw, ok := s.monitor.OnRawEvent(raw)
	if !ok {
		return
	}
	d := s.engine.Decide(sw)
	s.logger.Debug("foreground switch",
		zap.String("previous", string(sw.Previous)),
		zap.String("current", string(sw.Current)),
		zap.String("action", d.Action.String()),
		zap.String("reason", string(d.Reason)))
}

// Start runs the service in the background and registers it with the
// process-wide locator.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	if err := Default.Register(s); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func(done chan error) {
		err := s.Run(ctx)
		s.release(done)
		done <- err
	}(s.done)
	return nil
}

// release forgets a run that ended on its own so the service can be
// started again. A concurrent Stop has already taken the state.
func (s *Service) release(done chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
	Default.Unregister(s)
}

// Stop cancels the service and waits for it to exit.
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := <-done
	Default.Unregister(s)
	return err
}

// Running reports whether Start has been called without Stop.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Run blocks until ctx is canceled or the source ends.
func (s *Service) Run(ctx context.Context) error {
	if s.monitors != nil {
		rec := domain.MonitorRecord{
			PID:        s.pm.GetCurrentPID(),
			StartedAt:  time.Now(),
			AppVersion: s.config.AppVersion,
		}
		if err := s.monitors.RegisterMonitor(rec); err != nil {
			s.logger.Error("failed to register monitor", zap.Error(err))
			return err
		}
		defer func() {
			if err := s.monitors.ClearMonitor(); err != nil {
				s.logger.Warn("failed to clear monitor record", zap.Error(err))
			}
		}()
	}

	s.logger.Info("monitor service started",
		zap.String("source", s.source.Name()),
		zap.Int("pid", s.pm.GetCurrentPID()))
	defer s.monitor.Reset()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return s.pump(gctx)
	})

	if s.watcher != nil {
		g.Go(func() error {
			if err := s.watcher.Run(gctx); err != nil {
				s.logger.Warn("store watcher stopped; external changes need a restart", zap.Error(err))
			}
			return nil
		})
	}

	if s.monitors != nil {
		g.Go(func() error {
			s.heartbeat(gctx)
			return nil
		})
	}

	err := g.Wait()
	s.logger.Info("monitor service stopping")
	return err
}

// pump runs the source, restarting it after failures until ctx is done.
// A source that ends cleanly (EOF) ends the service.
func (s *Service) pump(ctx context.Context) error {
	for {
		err := s.source.Run(ctx, s.Dispatch)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			s.logger.Info("event source ended", zap.String("source", s.source.Name()))
			return nil
		}

		s.logger.Warn("event source failed, restarting",
			zap.String("source", s.source.Name()),
			zap.Duration("delay", s.config.RestartDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.config.RestartDelay):
		}
	}
}

func (s *Service) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.monitors.UpdateHeartbeat(); err != nil {
				s.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// Refresh reloads lock state after an external change to the store.
func (s *Service) Refresh() {
	if err := s.engine.Refresh(); err != nil {
		s.logger.Warn("failed to refresh lock state", zap.Error(err))
		return
	}
	s.logger.Info("lock state refreshed from store")
}
