package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

const (
	// DefaultPollInterval is how often the active window is sampled.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultActiveWindowCommand prints the PID owning the focused window.
	DefaultActiveWindowCommand = "xdotool getactivewindow getwindowpid"
)

// WindowSource polls the desktop for the focused window and reports its
// owning process as a window_state_changed event.
type WindowSource struct {
	command  string
	interval time.Duration
	runner   CommandRunner
	pm       domain.ProcessManager
	logger   *zap.Logger
	now      func() time.Time
}

// NewWindowSource creates a poller that runs command every interval.
func NewWindowSource(command string, interval time.Duration, pm domain.ProcessManager, logger *zap.Logger) *WindowSource {
	return NewWindowSourceWithRunner(command, interval, &RealCommandRunner{}, pm, logger)
}

// NewWindowSourceWithRunner creates a poller with an injectable runner (for testing)
func NewWindowSourceWithRunner(command string, interval time.Duration, runner CommandRunner, pm domain.ProcessManager, logger *zap.Logger) *WindowSource {
	if command == "" {
		command = DefaultActiveWindowCommand
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &WindowSource{
		command:  command,
		interval: interval,
		runner:   runner,
		pm:       pm,
		logger:   logger,
		now:      time.Now,
	}
}

// Name identifies the source in logs.
func (s *WindowSource) Name() string {
	return "window"
}

// Run samples the focused window until ctx is canceled.
func (s *WindowSource) Run(ctx context.Context, emit func(domain.RawEvent)) error {
	name, args, ok := expand(s.command, "")
	if !ok {
		return fmt.Errorf("active window command is empty")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if ev, ok := s.sample(name, args); ok {
			emit(ev)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// sample returns false when the focused window cannot be resolved.
func (s *WindowSource) sample(name string, args []string) (domain.RawEvent, bool) {
	out, err := s.runner.Output(name, args...)
	if err != nil {
		s.logger.Debug("active window query failed", zap.Error(err))
		return domain.RawEvent{}, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || pid <= 0 {
		s.logger.Debug("active window query returned no PID",
			zap.String("output", strings.TrimSpace(string(out))))
		return domain.RawEvent{}, false
	}

	procName, exe, err := s.pm.NameOf(pid)
	if err != nil {
		s.logger.Debug("active window process vanished",
			zap.Int("pid", pid),
			zap.Error(err))
		return domain.RawEvent{}, false
	}

	return domain.RawEvent{
		Kind:        domain.KindWindowStateChanged,
		PackageName: procName,
		ClassName:   exe,
		Timestamp:   s.now(),
	}, true
}

// Ensure WindowSource implements domain.EventSource.
var _ domain.EventSource = (*WindowSource)(nil)
