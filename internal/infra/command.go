package infra

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// AppPlaceholder is replaced by the target application identifier in
// command templates.
const AppPlaceholder = "{app}"

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
	Start(name string, args ...string) error
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete
func (r *RealCommandRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Output executes a command and returns its stdout
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Start launches a command without waiting for it
func (r *RealCommandRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// CommandTemplates configures the commands behind each collaborator.
type CommandTemplates struct {
	Suppress string // e.g. "xdotool key super"
	Gate     string // e.g. "x-terminal-emulator -e applock gate --target {app}"
	Launch   string // e.g. "gtk-launch {app}"
}

// CommandCollaborator implements the engine's side-effect collaborators
// by running configured command templates.
type CommandCollaborator struct {
	templates CommandTemplates
	runner    CommandRunner
	logger    *zap.Logger
}

// NewCommandCollaborator creates a collaborator that runs real commands.
func NewCommandCollaborator(templates CommandTemplates, logger *zap.Logger) *CommandCollaborator {
	return NewCommandCollaboratorWithRunner(templates, &RealCommandRunner{}, logger)
}

// NewCommandCollaboratorWithRunner creates a collaborator with an injectable runner (for testing)
func NewCommandCollaboratorWithRunner(templates CommandTemplates, runner CommandRunner, logger *zap.Logger) *CommandCollaborator {
	return &CommandCollaborator{
		templates: templates,
		runner:    runner,
		logger:    logger,
	}
}

// Suppress sends the user to the neutral home surface.
func (c *CommandCollaborator) Suppress() error {
	name, args, ok := expand(c.templates.Suppress, "")
	if !ok {
		c.logger.Debug("no suppress command configured")
		return nil
	}
	if err := c.runner.Run(name, args...); err != nil {
		return fmt.Errorf("suppress command %q failed: %w", name, err)
	}
	return nil
}

// PresentGate starts the PIN gate surface for target without waiting for it.
func (c *CommandCollaborator) PresentGate(target domain.AppID) error {
	name, args, ok := expand(c.templates.Gate, target)
	if !ok {
		c.logger.Warn("no gate command configured", zap.String("app", string(target)))
		return nil
	}
	if err := c.runner.Start(name, args...); err != nil {
		return fmt.Errorf("gate command %q failed: %w", name, err)
	}
	return nil
}

// Resume relaunches target. Returns domain.ErrNoLaunchEntry when no
// launch command is configured.
func (c *CommandCollaborator) Resume(id domain.AppID) error {
	name, args, ok := expand(c.templates.Launch, id)
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrNoLaunchEntry)
	}
	if err := c.runner.Start(name, args...); err != nil {
		return fmt.Errorf("launch command %q failed: %w", name, err)
	}
	return nil
}

// expand splits tmpl on whitespace and substitutes the placeholder.
func expand(tmpl string, id domain.AppID) (string, []string, bool) {
	fields := strings.Fields(tmpl)
	if len(fields) == 0 {
		return "", nil, false
	}
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, AppPlaceholder, string(id))
	}
	return fields[0], fields[1:], true
}

// Ensure CommandCollaborator implements all collaborator interfaces.
var (
	_ domain.ForegroundSuppressor = (*CommandCollaborator)(nil)
	_ domain.GatePresenter        = (*CommandCollaborator)(nil)
	_ domain.AppLauncher          = (*CommandCollaborator)(nil)
)
