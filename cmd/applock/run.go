package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/config"
	"github.com/eliteGoblin/focusd/app_lock/internal/daemon"
	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/infra"
	"github.com/eliteGoblin/focusd/app_lock/internal/monitor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor in the foreground",
	Long: `Runs the foreground monitor until interrupted. With --source window the
active window is sampled periodically; with --source stdin one JSON event per
line is read from standard input, e.g.

  {"kind":"window_state_changed","package_name":"org.gnome.Nautilus"}`,
	RunE: runRun,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitor in the background",
	Long:  `Spawns "applock run" detached from the terminal unless a monitor is already alive.`,
	RunE:  runStart,
}

var sourceName string

func init() {
	runCmd.Flags().StringVar(&sourceName, "source", "", "Event source (window|stdin)")
	startCmd.Flags().StringVar(&sourceName, "source", "", "Event source (window|stdin)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
}

func newSource(cfg config.Config, pm domain.ProcessManager, logger *zap.Logger) domain.EventSource {
	if cfg.Source == config.SourceStdin {
		return infra.NewStreamSource(os.Stdin, logger)
	}
	return infra.NewWindowSource(cfg.ActiveWindowCommand, cfg.PollInterval, pm, logger)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if sourceName != "" {
		cfg.Source = sourceName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := createLogger(cfg)
	defer logger.Sync()

	a, err := openApp(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return err
	}
	defer a.Close()

	pm := infra.NewProcessManager()
	var svc *daemon.Service
	watcher := infra.NewStoreWatcher(a.store.Path(), infra.DefaultDebounce, func() { svc.Refresh() }, logger)
	svc = daemon.NewService(
		daemon.ServiceConfig{
			RestartDelay:      cfg.RestartDelay,
			HeartbeatInterval: cfg.HeartbeatInterval,
			AppVersion:        Version,
		},
		newSource(cfg, pm, logger),
		monitor.NewForeground(logger),
		a.engine,
		a.store,
		watcher,
		pm,
		logger,
	)

	if err := daemon.Default.Register(svc); err != nil {
		return err
	}
	defer daemon.Default.Unregister(svc)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("monitor starting",
		zap.String("version", Version),
		zap.String("source", cfg.Source),
		zap.String("store", a.store.Path()))
	return svc.Run(ctx)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pm := infra.NewProcessManager()
	store, err := infra.OpenStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	rec, err := store.GetMonitor()
	store.Close()
	if err != nil {
		return fmt.Errorf("failed to read monitor state: %w", err)
	}
	if rec != nil && pm.IsRunning(rec.PID) {
		fmt.Printf("applock is already running (PID: %d)\n", rec.PID)
		return nil
	}

	pid, err := daemon.StartDaemon(configPath, sourceName)
	if err != nil {
		return err
	}
	fmt.Printf("applock started (PID: %d)\n", pid)
	return nil
}
