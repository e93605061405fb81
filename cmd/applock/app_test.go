package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/config"
	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		DataDir:           t.TempDir(),
		SelfID:            "applock",
		GateDelay:         time.Millisecond,
		Source:            config.SourceStdin,
		PollInterval:      time.Second,
		RestartDelay:      time.Second,
		HeartbeatInterval: time.Second,
		Log:               config.LogConfig{Level: "info"},
	}
}

func TestNewClassifier(t *testing.T) {
	cfg := testConfig(t)
	cfg.Exemptions.Prefix = []string{"org.kde."}

	c := newClassifier(cfg)

	assert.True(t, c.IsExempt("applock"))
	assert.True(t, c.IsExempt("gnome-shell"))
	assert.True(t, c.IsExempt("org.kde.dolphin"))
	assert.False(t, c.IsExempt("org.gnome.Nautilus"))
}

func TestOpenApp_StatePersistsAcrossCommands(t *testing.T) {
	cfg := testConfig(t)

	first, err := openApp(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.engine.SetLockedApps([]domain.AppID{"com.example.photos"}))
	require.NoError(t, first.engine.SetMonitoringEnabled(true))
	require.NoError(t, first.engine.SetPin("2468"))
	first.Close()

	second, err := openApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	status := second.engine.Status()
	assert.True(t, status.MonitoringEnabled)
	assert.True(t, status.PinConfigured)
	assert.Equal(t, []domain.AppID{"com.example.photos"}, status.LockedApps)
}

func TestOpenApp_GateGrantsGraceWindow(t *testing.T) {
	cfg := testConfig(t)

	a, err := openApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.engine.SetLockedApps([]domain.AppID{"com.example.photos"}))
	require.NoError(t, a.engine.SetPin("2468"))

	var out bytes.Buffer
	result, err := driveGate(a.engine.OpenGate("com.example.photos"), strings.NewReader("2468"), &out)
	require.NoError(t, err)

	assert.Equal(t, domain.GateUnlocked, result.Outcome)
	assert.ErrorIs(t, result.ResumeErr, domain.ErrNoLaunchEntry, "no launch command configured")
	assert.True(t, a.locks.IsTemporarilyUnlocked("com.example.photos"))
}
