// Package config loads applock settings from defaults, an optional YAML
// file and APPLOCK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/app_lock/internal/infra"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
)

// EnvPrefix prefixes every environment override, e.g. APPLOCK_DATA_DIR.
const EnvPrefix = "APPLOCK"

// Config holds application configuration.
type Config struct {
	DataDir             string           `mapstructure:"data_dir"`
	SelfID              string           `mapstructure:"self_id"`
	GateDelay           time.Duration    `mapstructure:"gate_delay"`
	Source              string           `mapstructure:"source"`
	PollInterval        time.Duration    `mapstructure:"poll_interval"`
	ActiveWindowCommand string           `mapstructure:"active_window_command"`
	RestartDelay        time.Duration    `mapstructure:"restart_delay"`
	HeartbeatInterval   time.Duration    `mapstructure:"heartbeat_interval"`
	Commands            CommandsConfig   `mapstructure:"commands"`
	Exemptions          ExemptionsConfig `mapstructure:"exemptions"`
	Log                 LogConfig        `mapstructure:"log"`
}

// CommandsConfig holds the collaborator command templates.
type CommandsConfig struct {
	Suppress string `mapstructure:"suppress"`
	Gate     string `mapstructure:"gate"`
	Launch   string `mapstructure:"launch"`
}

// ExemptionsConfig adds site-specific never-lock rules.
type ExemptionsConfig struct {
	Exact    []string `mapstructure:"exact"`
	Prefix   []string `mapstructure:"prefix"`
	Contains []string `mapstructure:"contains"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Source names accepted by the run command.
const (
	SourceWindow = "window"
	SourceStdin  = "stdin"
)

// Templates converts the command settings for the collaborator.
func (c Config) Templates() infra.CommandTemplates {
	return infra.CommandTemplates{
		Suppress: c.Commands.Suppress,
		Gate:     c.Commands.Gate,
		Launch:   c.Commands.Launch,
	}
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	switch c.Source {
	case SourceWindow, SourceStdin:
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, SourceWindow, SourceStdin)
	}
	if c.GateDelay < 0 {
		return errors.New("gate_delay must not be negative")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.RestartDelay <= 0 {
		return errors.New("restart_delay must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("heartbeat_interval must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	mode := infra.DetectExecMode()

	v.SetDefault("data_dir", mode.DataDir)
	v.SetDefault("self_id", "applock")
	v.SetDefault("gate_delay", usecase.DefaultGateDelay)
	v.SetDefault("source", SourceWindow)
	v.SetDefault("poll_interval", infra.DefaultPollInterval)
	v.SetDefault("active_window_command", infra.DefaultActiveWindowCommand)
	v.SetDefault("restart_delay", 2*time.Second)
	v.SetDefault("heartbeat_interval", 30*time.Second)
	v.SetDefault("commands.suppress", "xdotool key super")
	v.SetDefault("commands.gate", "x-terminal-emulator -e applock gate --target {app}")
	v.SetDefault("commands.launch", "")
	v.SetDefault("exemptions.exact", []string{})
	v.SetDefault("exemptions.prefix", []string{})
	v.SetDefault("exemptions.contains", []string{})
	v.SetDefault("log.level", "info")
}

// Load reads configuration. path selects the config file; when empty
// $APPLOCK_CONFIG and then the per-user default location are tried. A
// missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		path = infra.DetectExecMode().ConfigPath
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
