package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser keeps state under the invoking user's home directory
	ExecModeUser ExecMode = "user"
	// ExecModeSystem keeps state in a system-wide directory (root)
	ExecModeSystem ExecMode = "system"
)

const (
	// LogFileName is the daemon log file inside the data directory.
	LogFileName = "applock.log"
)

// ExecModeConfig holds paths based on execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	DataDir    string // Where the encrypted store and key live
	ConfigPath string // Default config file location
	IsRoot     bool
}

// LogPath returns the daemon log file path.
func (c *ExecModeConfig) LogPath() string {
	return filepath.Join(c.DataDir, LogFileName)
}

// StorePath returns the encrypted store path.
func (c *ExecModeConfig) StorePath() string {
	return filepath.Join(c.DataDir, StoreDBName)
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	if os.Geteuid() == 0 && os.Getenv("SUDO_USER") == "" {
		return &ExecModeConfig{
			Mode:       ExecModeSystem,
			DataDir:    "/var/lib/applock",
			ConfigPath: "/etc/applock/config.yaml",
			IsRoot:     true,
		}
	}
	return GetUserModeConfig()
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// GetUserModeConfig returns user mode config regardless of current euid.
// Honors XDG_DATA_HOME and XDG_CONFIG_HOME.
func GetUserModeConfig() *ExecModeConfig {
	home := GetRealUserHome()

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	return &ExecModeConfig{
		Mode:       ExecModeUser,
		DataDir:    filepath.Join(dataHome, "applock"),
		ConfigPath: filepath.Join(configHome, "applock", "config.yaml"),
		IsRoot:     os.Geteuid() == 0,
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns /root, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
