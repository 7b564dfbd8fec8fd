package main

import (
	"bufio"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tosho/internal/assemble"
	"tosho/internal/check"
	"tosho/internal/config"
	"tosho/internal/deliver"
	"tosho/internal/fallback"
	"tosho/internal/library"
	"tosho/internal/logging"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		titleSlug string
		fromFlag  float64
		autoFlag  bool
		listFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check tracked titles for new chapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				lock := flock.New(cfg.LockPath())
				locked, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire check lock: %w", err)
				}
				if !locked {
					return fmt.Errorf("another check is already running (lock %s)", cfg.LockPath())
				}
				defer func() { _ = lock.Unlock() }()

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}

				assembler, err := assemble.New(cfg.Delivery.Format)
				if err != nil {
					return err
				}
				deliverer, err := deliver.New(cfg)
				if err != nil {
					return err
				}

				registry, closeSources := buildSources(cfg, logger)
				defer closeSources()

				orch := check.New(check.Config{
					Store:      store,
					Engine:     fallback.NewEngine(store, cfg.Check.FallbackDelayDays, logger),
					Registry:   registry,
					Assembler:  assembler,
					Deliverer:  deliverer,
					OutputDir:  cfg.Paths.DownloadDir,
					RenewEvery: cfg.Check.SessionRenewEvery,
					Logger:     logger,
				})

				opts := check.Options{Slug: strings.TrimSpace(titleSlug)}
				if cmd.Flags().Changed("from") {
					from := fromFlag
					opts.From = &from
				}

				out := cmd.OutOrStdout()
				if listFlag {
					opts.ListOnly = true
					report, err := orch.Run(runCtx, opts)
					if err != nil {
						return err
					}
					renderReport(out, report)
					return nil
				}

				if !autoFlag && !cfg.Check.AutoDownload {
					preview := opts
					preview.ListOnly = true
					report, err := orch.Run(runCtx, preview)
					if err != nil {
						return err
					}
					renderReport(out, report)
					pending := 0
					for i := range report.Titles {
						pending += report.Titles[i].Pending()
					}
					if pending == 0 {
						return nil
					}
					if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Download %d chapter(s)?", pending)) {
						fmt.Fprintln(out, "Aborted.")
						return nil
					}
				}

				report, err := orch.Run(runCtx, opts)
				if err != nil {
					return err
				}
				renderReport(out, report)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&titleSlug, "title", "t", "", "Check a single title by slug")
	cmd.Flags().Float64Var(&fromFlag, "from", 0, "Ignore chapters below this number")
	cmd.Flags().BoolVar(&autoFlag, "auto", false, "Download without asking")
	cmd.Flags().BoolVar(&listFlag, "list", false, "Show pending chapters without downloading")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func renderReport(out io.Writer, report *check.Report) {
	colorize := shouldColorize(out)

	var rows [][]string
	for _, title := range report.Titles {
		for _, ch := range title.Chapters {
			rows = append(rows, []string{
				title.Slug,
				library.FormatOrdinal(ch.Ordinal),
				chapterOutcomeLabel(ch),
				chapterNote(ch),
			})
		}
		for _, url := range title.SourceFailures {
			fmt.Fprintln(out, renderStatusLine("Source failed", statusWarn, url, colorize))
		}
		if title.Aborted != nil {
			fmt.Fprintln(out, renderStatusLine("Aborted", statusError, fmt.Sprintf("%s: %v", title.Slug, title.Aborted), colorize))
		}
	}

	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Title", "Chapter", "Result", "Detail"},
			rows, 2))
	}

	downloaded := report.Downloaded()
	failures := report.Failures()
	summary := fmt.Sprintf("%d title(s) checked, %d chapter(s) downloaded, %d failure(s) in %s",
		len(report.Titles), downloaded, failures, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	kind := statusOK
	if failures > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Check", kind, summary, colorize))
}

func chapterOutcomeLabel(ch check.ChapterResult) string {
	label := string(ch.Outcome)
	if ch.FromBackup && (ch.Outcome == check.OutcomeDownloaded || ch.Outcome == check.OutcomePending) {
		label += " (backup)"
	}
	return label
}

func chapterNote(ch check.ChapterResult) string {
	switch ch.Outcome {
	case check.OutcomeDownloaded:
		return ch.Location
	case check.OutcomeWaiting:
		return "ready " + ch.ReadyAt.Local().Format("2006-01-02 15:04")
	case check.OutcomePending:
		return ch.Source
	case check.OutcomeSkipped:
		if ch.Err != nil {
			return ch.Err.Error()
		}
	}
	return ""
}
