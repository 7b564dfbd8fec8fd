package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tosho/internal/config"
	"tosho/internal/library"
	"tosho/internal/logging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library and last-check status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				last, err := store.LastCheck(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintln(out, renderStatusLine("Titles", statusInfo,
					fmt.Sprintf("%d tracked, %d reading", stats.Titles, stats.Reading), colorize))
				fmt.Fprintln(out, renderStatusLine("Chapters", statusInfo,
					fmt.Sprintf("%d downloaded", stats.Records), colorize))

				windowKind := statusOK
				if stats.OpenWindows > 0 {
					windowKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Waiting", windowKind,
					fmt.Sprintf("%d chapter(s) in fallback windows", stats.OpenWindows), colorize))

				if last == nil {
					fmt.Fprintln(out, renderStatusLine("Last check", statusWarn, "never", colorize))
				} else {
					kind := statusOK
					if last.Failures > 0 {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine("Last check", kind,
						fmt.Sprintf("%s, %d downloaded, %d failure(s)",
							last.FinishedAt.Local().Format(time.RFC1123),
							last.ChaptersDownloaded, last.Failures), colorize))
				}

				fmt.Fprintln(out, renderStatusLine("Delivery", statusInfo,
					fmt.Sprintf("%s as %s", cfg.Delivery.Mode, cfg.Delivery.Format), colorize))

				installed, line, err := installedCronLine()
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Cron", statusWarn, err.Error(), colorize))
				} else if installed {
					fmt.Fprintln(out, renderStatusLine("Cron", statusOK, line, colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Cron", statusInfo, "not installed", colorize))
				}
				return nil
			})
		},
	}
}

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Show the available source adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			registry, closeSources := buildSources(cfg, logging.NewNop())
			defer closeSources()

			type hoster interface{ Hosts() []string }

			var rows [][]string
			for _, src := range registry.Sources() {
				hosts := "(fallback for unclaimed hosts)"
				if h, ok := src.(hoster); ok && len(h.Hosts()) > 0 {
					hosts = strings.Join(h.Hosts(), ", ")
				}
				rows = append(rows, []string{src.Name(), hosts})
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Adapter", "Hosts"},
				rows))
			return nil
		},
	}
}
