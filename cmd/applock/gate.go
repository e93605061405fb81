package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Show the PIN gate for a locked app",
	Long: `Reads the PIN from the terminal one key at a time. Digits are entered
with 0-9 and "-" (or backspace) deletes the last digit. On the correct PIN the
app is opened until you switch away from it.`,
	Args: cobra.NoArgs,
	RunE: runGate,
}

var gateTarget string

func init() {
	gateCmd.Flags().StringVar(&gateTarget, "target", "", "App to unlock")
	_ = gateCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	target := domain.AppID(strings.TrimSpace(gateTarget))
	if target == "" {
		return errors.New("--target must not be blank")
	}

	return withApp(func(a *app) error {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			state, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("failed to enter raw mode: %w", err)
			}
			defer term.Restore(fd, state)
		}

		fmt.Fprintf(os.Stdout, "%s is locked. Enter PIN.\r\n", target)
		result, err := driveGate(a.engine.OpenGate(target), os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		return reportUnlock(os.Stdout, target, result)
	})
}

// reportUnlock tells the user how to reach the unlocked app. Only a failing
// launch command is an error; having none configured is expected.
func reportUnlock(w io.Writer, target domain.AppID, result domain.GateResult) error {
	switch {
	case result.ResumeErr == nil:
		return nil
	case errors.Is(result.ResumeErr, domain.ErrNoLaunchEntry):
		fmt.Fprintf(w, "%s is unlocked; switch back to it.\r\n", target)
		return nil
	default:
		return fmt.Errorf("unlocked %s but could not open it: %w", target, result.ResumeErr)
	}
}

// driveGate feeds key presses from r into g until it unlocks.
func driveGate(g *usecase.PinGate, r io.Reader, w io.Writer) (domain.GateResult, error) {
	keys := bufio.NewReader(r)
	render(w, g.Len(), "")

	for {
		key, err := keys.ReadByte()
		if err != nil {
			fmt.Fprint(w, "\r\n")
			return domain.GateResult{Outcome: domain.GatePending}, fmt.Errorf("keypad closed: %w", err)
		}

		switch {
		case key >= '0' && key <= '9':
			result, err := g.PressDigit(int(key - '0'))
			if err != nil {
				return result, err
			}
			switch result.Outcome {
			case domain.GateUnlocked:
				render(w, 0, "unlocked")
				fmt.Fprint(w, "\r\n")
				return result, nil
			case domain.GateRejected:
				render(w, 0, rejectMessage(result.Reason))
				continue
			}
		case key == '-' || key == 0x7f || key == '\b':
			g.PressDelete()
		default:
			continue
		}
		render(w, g.Len(), "")
	}
}

func render(w io.Writer, n int, msg string) {
	masked := strings.Repeat("*", n) + strings.Repeat("_", usecase.PinLength-n)
	if msg != "" {
		fmt.Fprintf(w, "\r\x1b[KPIN: %s  %s", masked, msg)
		return
	}
	fmt.Fprintf(w, "\r\x1b[KPIN: %s", masked)
}

func rejectMessage(reason domain.RejectReason) string {
	switch reason {
	case domain.RejectNoCredential:
		return "no PIN configured (run: applock pin set)"
	case domain.RejectStoreFailure:
		return "could not read PIN, try again"
	default:
		return "wrong PIN"
	}
}
