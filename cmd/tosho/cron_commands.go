package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tosho/internal/config"
)

// cronMarker tags the crontab line this tool manages so install and remove
// never touch anything else in the user's crontab.
const cronMarker = "# tosho-check"

func newCronCommand(ctx *commandContext) *cobra.Command {
	cronCmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage the scheduled daily check",
	}

	cronCmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install a crontab entry running the daily check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			line, err := cronLine(cfg)
			if err != nil {
				return err
			}

			current, err := readCrontab()
			if err != nil {
				return err
			}
			entries := removeManagedLines(current)
			entries = append(entries, line)
			if err := writeCrontab(entries); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Installed: %s\n", line)
			return nil
		},
	})

	cronCmd.AddCommand(&cobra.Command{
		Use:         "remove",
		Short:       "Remove the managed crontab entry",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := readCrontab()
			if err != nil {
				return err
			}
			entries := removeManagedLines(current)
			if len(entries) == len(current) {
				fmt.Fprintln(cmd.OutOrStdout(), "No managed crontab entry found.")
				return nil
			}
			if err := writeCrontab(entries); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed the scheduled check.")
			return nil
		},
	})

	cronCmd.AddCommand(&cobra.Command{
		Use:         "status",
		Short:       "Show whether the scheduled check is installed",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			installed, line, err := installedCronLine()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !installed {
				fmt.Fprintln(out, "Not installed. Run `tosho cron install` to schedule the daily check.")
				return nil
			}
			fmt.Fprintf(out, "Installed: %s\n", line)
			return nil
		},
	})

	return cronCmd
}

// cronLine renders the managed crontab entry from the configured HH:MM time.
func cronLine(cfg *config.Config) (string, error) {
	hourField, minuteField, ok := strings.Cut(cfg.Cron.Time, ":")
	if !ok {
		return "", fmt.Errorf("invalid cron time %q", cfg.Cron.Time)
	}
	hour, err := strconv.Atoi(hourField)
	if err != nil {
		return "", fmt.Errorf("invalid cron time %q", cfg.Cron.Time)
	}
	minute, err := strconv.Atoi(minuteField)
	if err != nil {
		return "", fmt.Errorf("invalid cron time %q", cfg.Cron.Time)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "cron.log")
	return fmt.Sprintf("%d %d * * * %s check --auto >> %s 2>&1 %s",
		minute, hour, exe, logPath, cronMarker), nil
}

func installedCronLine() (bool, string, error) {
	current, err := readCrontab()
	if err != nil {
		return false, "", err
	}
	for _, line := range current {
		if strings.Contains(line, cronMarker) {
			return true, line, nil
		}
	}
	return false, "", nil
}

func removeManagedLines(lines []string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, cronMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func readCrontab() ([]string, error) {
	out, err := exec.Command("crontab", "-l").Output()
	if err != nil {
		// crontab -l exits non-zero when the user has no crontab yet.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) &&
			(strings.Contains(string(exitErr.Stderr), "no crontab") || len(bytes.TrimSpace(out)) == 0) {
			return nil, nil
		}
		return nil, fmt.Errorf("read crontab: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func writeCrontab(lines []string) error {
	input := strings.Join(lines, "\n")
	if input != "" {
		input += "\n"
	}
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = strings.NewReader(input)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("write crontab: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
