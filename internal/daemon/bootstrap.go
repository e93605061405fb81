package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// RunArgs builds the command line for a background monitor.
func RunArgs(configPath, source string) []string {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if source != "" {
		args = append(args, "--source", source)
	}
	return args
}

// StartDaemon spawns `applock run` from the current executable, detached
// from the terminal. It returns the child PID.
func StartDaemon(configPath, source string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}
	return StartDaemonWithPath(executable, configPath, source)
}

// StartDaemonWithPath spawns a detached monitor using the given binary.
func StartDaemonWithPath(binaryPath, configPath, source string) (int, error) {
	cmd := exec.Command(binaryPath, RunArgs(configPath, source)...)

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start monitor: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release monitor process: %w", err)
	}
	return pid, nil
}
