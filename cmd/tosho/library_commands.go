package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tosho/internal/config"
	"tosho/internal/library"
	"tosho/internal/logging"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var delayDays int

	cmd := &cobra.Command{
		Use:   "add <name> <primary-url> [backup-url...]",
		Short: "Track a new title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := displayName(args[0])
			urls := args[1:]

			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				registry, closeSources := buildSources(cfg, logging.NewNop())
				defer closeSources()

				out := cmd.OutOrStdout()
				for _, raw := range urls {
					if _, err := registry.Resolve(raw); err != nil {
						fmt.Fprintf(out, "Warning: %v\n", err)
					}
				}

				title, err := store.AddTitle(cmd.Context(), name, urls)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("delay") {
					days := delayDays
					if err := store.SetFallbackDelay(cmd.Context(), title.Slug, &days); err != nil {
						return err
					}
				}

				fmt.Fprintf(out, "Tracking %s (%s) with %d source(s)\n", title.DisplayName, title.Slug, len(title.Sources))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&delayDays, "delay", 0, "Fallback delay in days for this title (overrides the configured default)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				titles, err := store.Titles(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(titles) == 0 {
					fmt.Fprintln(out, "No titles tracked. Add one with `tosho add`.")
					return nil
				}

				rows := make([][]string, 0, len(titles))
				for _, title := range titles {
					recorded, err := store.RecordedOrdinals(cmd.Context(), title.ID)
					if err != nil {
						return err
					}
					windows, err := store.Windows(cmd.Context(), title.ID)
					if err != nil {
						return err
					}
					delay := "default"
					if title.FallbackDelayDays != nil {
						delay = fmt.Sprintf("%dd", *title.FallbackDelayDays)
					}
					rows = append(rows, []string{
						title.Slug,
						title.DisplayName,
						string(title.Status),
						strconv.Itoa(len(title.Sources)),
						strconv.Itoa(len(recorded)),
						strconv.Itoa(len(windows)),
						delay,
					})
				}

				fmt.Fprintln(out, renderTable(
					[]string{"Slug", "Title", "Status", "Sources", "Chapters", "Waiting", "Delay"},
					rows, 4, 5, 6, 7))
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug>",
		Short: "Stop tracking a title and drop its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				slug := strings.TrimSpace(args[0])
				title, err := store.TitleBySlug(cmd.Context(), slug)
				if err != nil {
					return err
				}
				if err := store.RemoveTitle(cmd.Context(), slug); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", title.DisplayName, slug)
				return nil
			})
		},
	}
}

func newSetCommand(ctx *commandContext) *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change a tracked title",
	}
	setCmd.AddCommand(newSetStatusCommand(ctx))
	setCmd.AddCommand(newSetSourcesCommand(ctx))
	setCmd.AddCommand(newSetDelayCommand(ctx))
	return setCmd
}

func newSetStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <slug> <reading|on-hold|dropped|completed>",
		Short: "Change a title's tracking status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := library.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				if err := store.SetStatus(cmd.Context(), args[0], status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], status)
				return nil
			})
		},
	}
}

func newSetSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources <slug> <primary-url> [backup-url...]",
		Short: "Replace a title's source list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				if err := store.SetSources(cmd.Context(), args[0], args[1:]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d source(s)\n", args[0], len(args)-1)
				return nil
			})
		},
	}
}

func newSetDelayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delay <slug> <days|default>",
		Short: "Override the fallback delay for a title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var days *int
			if !strings.EqualFold(args[1], "default") {
				parsed, err := strconv.Atoi(args[1])
				if err != nil || parsed < 0 {
					return fmt.Errorf("delay must be a non-negative day count or %q", "default")
				}
				days = &parsed
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				if err := store.SetFallbackDelay(cmd.Context(), args[0], days); err != nil {
					return err
				}
				if days == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s uses the configured fallback delay\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s waits %d day(s) before falling back\n", args[0], *days)
				}
				return nil
			})
		},
	}
}

// displayName tidies a user-supplied title. All-lowercase input gets title
// cased; mixed case is kept as typed.
func displayName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if name == strings.ToLower(name) {
		name = cases.Title(language.Und).String(name)
	}
	return name
}
