package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/infra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage locked applications",
}

var lockSetCmd = &cobra.Command{
	Use:   "set <app-id>...",
	Short: "Replace the set of locked applications",
	Long:  `Replaces the locked set. Run with no arguments to unlock everything.`,
	RunE:  runLockSet,
}

var lockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locked applications",
	Args:  cobra.NoArgs,
	RunE:  runLockList,
}

var monitoringCmd = &cobra.Command{
	Use:       "monitoring on|off",
	Short:     "Enable or disable interception",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE:      runMonitoring,
}

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the unlock PIN",
}

var pinSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the 4-digit unlock PIN",
	Long:  `Prompts for the new PIN without echo. Use --pin for non-interactive setup.`,
	Args:  cobra.NoArgs,
	RunE:  runPinSet,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <app-id>",
	Short: "Open a locked app until you switch away from it",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

var relockCmd = &cobra.Command{
	Use:   "relock <app-id>",
	Short: "End a temporary unlock immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelock,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lock state and monitor health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var pinFlag string

func init() {
	pinSetCmd.Flags().StringVar(&pinFlag, "pin", "", "New PIN (skips the prompt)")

	lockCmd.AddCommand(lockSetCmd)
	lockCmd.AddCommand(lockListCmd)
	pinCmd.AddCommand(pinSetCmd)

	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(monitoringCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(relockCmd)
	rootCmd.AddCommand(statusCmd)
}

func runLockSet(cmd *cobra.Command, args []string) error {
	ids := make([]domain.AppID, 0, len(args))
	for _, arg := range args {
		ids = append(ids, domain.AppID(arg))
	}
	return withApp(func(a *app) error {
		if err := a.engine.SetLockedApps(ids); err != nil {
			return err
		}
		fmt.Printf("Locked apps: %d\n", len(a.locks.LockedApps()))
		return nil
	})
}

func runLockList(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		status := a.engine.Status()
		if len(status.LockedApps) == 0 {
			fmt.Println("No locked apps")
			return nil
		}
		open := make(map[domain.AppID]bool, len(status.TemporarilyOpen))
		for _, id := range status.TemporarilyOpen {
			open[id] = true
		}
		for _, id := range status.LockedApps {
			if open[id] {
				fmt.Printf("  %s (temporarily unlocked)\n", id)
			} else {
				fmt.Printf("  %s\n", id)
			}
		}
		return nil
	})
}

func runMonitoring(cmd *cobra.Command, args []string) error {
	enabled := args[0] == "on"
	return withApp(func(a *app) error {
		if err := a.engine.SetMonitoringEnabled(enabled); err != nil {
			return err
		}
		fmt.Printf("Monitoring %s\n", args[0])
		return nil
	})
}

func runPinSet(cmd *cobra.Command, args []string) error {
	pin := pinFlag
	if pin == "" {
		var err error
		if pin, err = promptPin(); err != nil {
			return err
		}
	}
	return withApp(func(a *app) error {
		if err := a.engine.SetPin(pin); err != nil {
			return err
		}
		fmt.Println("PIN updated")
		return nil
	})
}

// promptPin reads the PIN twice without echo when stdin is a terminal.
func promptPin() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read PIN: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Print("New PIN: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	fmt.Print("Repeat PIN: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("PINs do not match")
	}
	return string(first), nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		if err := a.engine.TemporarilyUnlock(domain.AppID(args[0])); err != nil {
			return err
		}
		fmt.Printf("%s unlocked until you switch away\n", args[0])
		return nil
	})
}

func runRelock(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		if err := a.engine.ReEnableInterception(domain.AppID(args[0])); err != nil {
			return err
		}
		fmt.Printf("%s locked\n", args[0])
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) error {
		status := a.engine.Status()

		fmt.Println("applock status")
		fmt.Println("==============")
		fmt.Printf("Store:      %s\n", a.store.Path())
		fmt.Printf("Monitoring: %s\n", onOff(status.MonitoringEnabled))
		fmt.Printf("PIN set:    %t\n", status.PinConfigured)
		fmt.Printf("Locked:     %s\n", joinIDs(status.LockedApps))
		fmt.Printf("Open:       %s\n", joinIDs(status.TemporarilyOpen))
		fmt.Println()

		rec, err := a.store.GetMonitor()
		if err != nil {
			return fmt.Errorf("failed to read monitor state: %w", err)
		}
		if rec == nil {
			fmt.Println("Monitor:    not running")
			return nil
		}
		pm := infra.NewProcessManager()
		state := "running"
		if !pm.IsRunning(rec.PID) {
			state = "dead (stale record)"
		}
		fmt.Printf("Monitor:    %s (PID: %d, version %s)\n", state, rec.PID, rec.AppVersion)
		fmt.Printf("Started:    %s\n", rec.StartedAt.Format(time.RFC3339))
		fmt.Printf("Heartbeat:  %s ago\n", time.Since(rec.LastHeartbeat).Round(time.Second))
		return nil
	})
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func joinIDs(ids []domain.AppID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
