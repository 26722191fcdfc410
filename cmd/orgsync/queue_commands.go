package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orgsync/internal/api"
	"orgsync/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the sync queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"stats"},
		Short:   "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := api.NewQueueService(store).Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.QueueStatsResponse{Counts: stats})
				}

				total := 0
				rows := make([][]string, 0, len(stats))
				for _, status := range queue.AllStatuses() {
					count := stats[string(status)]
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, value := range listStatuses {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *queue.Store) error {
				items, err := api.NewQueueService(store).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.QueueListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					attempts := fmt.Sprintf("%d/%d", item.Attempts, item.MaxAttempts)
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Kind,
						item.Operation,
						item.ExternalCode,
						item.Status,
						attempts,
						item.LastError,
					})
				}
				table := renderTable(
					[]string{"ID", "Kind", "Operation", "Code", "Status", "Attempts", "Last Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		kindFlag      string
		operationFlag string
		codeFlag      string
		payloadFlag   string
		expiresInFlag time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a sync item",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := queue.ParseEntityKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown entity kind %q", kindFlag)
			}
			operation, ok := queue.ParseOperation(operationFlag)
			if !ok {
				return fmt.Errorf("unknown operation %q", operationFlag)
			}
			if strings.TrimSpace(codeFlag) == "" {
				return fmt.Errorf("external code is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			params := queue.NewItemParams{
				Kind:         kind,
				Operation:    operation,
				ExternalCode: codeFlag,
				PayloadJSON:  payloadFlag,
				MaxAttempts:  cfg.Sync.MaxAttempts,
			}
			if expiresInFlag > 0 {
				expires := time.Now().UTC().Add(expiresInFlag)
				params.ExpiresAt = &expires
			}

			return ctx.withStore(func(store *queue.Store) error {
				item, err := store.Enqueue(cmd.Context(), params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued item %d (%s %s %s)\n", item.ID, item.Kind, item.Operation, item.ExternalCode)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Entity kind (organization, unit, category, type)")
	cmd.Flags().StringVar(&operationFlag, "operation", "", "Operation (creation, update, extinction, hierarchy_change, merge, split)")
	cmd.Flags().StringVar(&codeFlag, "code", "", "SIORG external code")
	cmd.Flags().StringVar(&payloadFlag, "payload", "", "Remote change payload as JSON")
	cmd.Flags().DurationVar(&expiresInFlag, "expires-in", 0, "Drop the item if not processed within this window")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("operation")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				result, err := api.RemoveItemsByID(cmd.Context(), store, ids)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RemoveItemNotFound:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", item.ID)
					case api.RemoveItemDeleted:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d removed\n", item.ID)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "retry [id]...",
		Short: "Reset failed items back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				if len(args) == 0 {
					count, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, map[string]any{"updatedCount": count})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed item(s) for retry\n", count)
					return nil
				}

				ids, err := parsePositiveIDs(args)
				if err != nil {
					return err
				}
				result, err := api.RetryFailedItemsByID(cmd.Context(), store, ids)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryItemNotFound:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", item.ID)
					case api.RetryItemNotFailed:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d is not failed\n", item.ID)
					case api.RetryItemUpdated:
						fmt.Fprintf(cmd.OutOrStdout(), "Item %d reset for retry\n", item.ID)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var (
					count int64
					err   error
					label string
				)
				if clearAll {
					count, err = store.Clear(cmd.Context())
					label = "queue items"
				} else {
					count, err = store.ClearCompleted(cmd.Context())
					label = "completed items"
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", count, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every item regardless of status")
	return cmd
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
