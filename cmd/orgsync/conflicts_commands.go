package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"orgsync/internal/api"
	"orgsync/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiYellow = "\x1b[33m"
)

func newConflictsCommand(ctx *commandContext) *cobra.Command {
	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Review and resolve sync conflicts",
	}

	conflictsCmd.AddCommand(newConflictsListCommand(ctx))
	conflictsCmd.AddCommand(newConflictsShowCommand(ctx))
	conflictsCmd.AddCommand(newConflictsResolveCommand(ctx))

	return conflictsCmd
}

func newConflictsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		offset     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conflicted items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				page, err := api.NewQueueService(store).Conflicts(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, page)
				}
				if len(page.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No conflicts")
					return nil
				}

				rows := make([][]string, 0, len(page.Items))
				for _, item := range page.Items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Kind,
						item.ExternalCode,
						strconv.Itoa(len(item.Fields)),
						item.UpdatedAt,
					})
				}
				table := renderTable(
					[]string{"ID", "Kind", "Code", "Fields", "Detected"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				fmt.Fprintln(cmd.OutOrStdout(), "Use 'orgsync conflicts show <id>' to inspect field-level differences")
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum conflicts to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of conflicts to skip")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newConflictsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show field-level differences for a conflicted item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.GetByID(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", ids[0])
				}
				if item.Status != queue.StatusConflict {
					return fmt.Errorf("item %d is %s, not in conflict", item.ID, item.Status)
				}

				conflict := api.FromConflictItem(item)
				if jsonOutput {
					return writeJSON(cmd, conflict)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %d: %s %s (%s)\n", conflict.ID, conflict.Kind, conflict.ExternalCode, conflict.Operation)
				for _, field := range conflict.Fields {
					fmt.Fprintf(out, "  %s\n", colorize(out, field, ansiYellow))
					fmt.Fprintf(out, "    local:  %s\n", conflict.LocalValues[field])
					fmt.Fprintf(out, "    remote: %s\n", conflict.RemoteValues[field])
				}
				fmt.Fprintln(out, "Resolve with 'orgsync conflicts resolve' using --requeue or --dismiss")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newConflictsResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		requeue    bool
		dismiss    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <id>...",
		Short: "Resolve conflicted items",
		Long: "Resolve conflicted items. --requeue sends the item back through\n" +
			"reconciliation so the remote change is applied over the local edit.\n" +
			"--dismiss keeps the local edit and marks the item completed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if requeue == dismiss {
				return fmt.Errorf("exactly one of --requeue or --dismiss is required")
			}
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				result, err := api.ResolveConflictsByID(cmd.Context(), store, ids, requeue)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.ResolveNotFound:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", item.ID)
					case api.ResolveNotConflict:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d is not in conflict\n", item.ID)
					case api.ResolveResolved:
						if requeue {
							fmt.Fprintf(cmd.OutOrStdout(), "Item %d re-queued for sync\n", item.ID)
						} else {
							fmt.Fprintf(cmd.OutOrStdout(), "Item %d dismissed, local values kept\n", item.ID)
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&requeue, "requeue", false, "Re-queue the item so the remote change is applied")
	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "Keep the local edit and mark the item completed")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func colorize(writer io.Writer, value, color string) string {
	if !shouldColorize(writer) {
		return value
	}
	return color + value + ansiReset
}
