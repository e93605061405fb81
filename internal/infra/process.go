// Package infra implements infrastructure concerns (storage, processes, event sources, collaborators).
package infra

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// NameOf returns the process name and executable path of pid.
// The executable path may be empty when the OS denies access.
func (pm *ProcessManagerImpl) NameOf(pid int) (string, string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", "", fmt.Errorf("process %d: %w", pid, err)
	}
	name, err := p.Name()
	if err != nil {
		return "", "", fmt.Errorf("process %d name: %w", pid, err)
	}
	exe, _ := p.Exe()
	return name, exe, nil
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
