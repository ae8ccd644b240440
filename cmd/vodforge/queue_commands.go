package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vodforge/internal/api"
	"vodforge/internal/config"
	"vodforge/internal/queue"
	"vodforge/internal/tracker"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueReclaimCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				merged := api.MergeQueueStats(stats)
				if ctx.JSONMode() {
					return writeJSON(cmd, merged)
				}
				rows := make([][]string, 0, len(merged))
				for _, state := range queue.AllStates() {
					rows = append(rows, []string{displayLabel(string(state)), fmt.Sprint(merged[string(state)])})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"State", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Re-queue failed jobs (all failed jobs when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(func(_ *config.Config, store *queue.Store, trk tracker.Tracker) error {
				if len(args) == 0 {
					ids, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					syncMirror(cmd, trk, store, ids)
					if ctx.JSONMode() {
						return writeJSON(cmd, api.ActionsResult{UpdatedCount: int64(len(ids)), Jobs: []api.ActionResult{}})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Re-queued %d failed job(s)\n", len(ids))
					return nil
				}
				result, err := api.RetryFailedJobsByID(cmd.Context(), store, args)
				if err != nil {
					return err
				}
				syncMirror(cmd, trk, store, result.UpdatedIDs())
				return printActionResults(cmd, ctx, result, "Re-queued")
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Delete jobs that are not currently running",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(func(_ *config.Config, store *queue.Store, trk tracker.Tracker) error {
				result, err := api.RemoveJobsByID(cmd.Context(), store, args)
				if err != nil {
					return err
				}
				syncMirror(cmd, trk, store, result.UpdatedIDs())
				return printActionResults(cmd, ctx, result, "Removed")
			})
		},
	}
}

func printActionResults(cmd *cobra.Command, ctx *commandContext, result api.ActionsResult, verb string) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	for _, job := range result.Jobs {
		switch job.Outcome {
		case api.ActionUpdated:
			fmt.Fprintf(out, "%s job %s\n", verb, job.ID)
		case api.ActionNotFound:
			fmt.Fprintf(out, "Job %s not found\n", job.ID)
		case api.ActionNotFailed:
			fmt.Fprintf(out, "Job %s is %s, not failed\n", job.ID, job.PriorState)
		case api.ActionActive:
			fmt.Fprintf(out, "Job %s is running and was left in place\n", job.ID)
		}
	}
	return nil
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete finished or pending jobs (running jobs are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return errors.New("--completed and --failed are mutually exclusive")
			}
			return ctx.withTracker(func(_ *config.Config, store *queue.Store, trk tracker.Tracker) error {
				var (
					removed []string
					err     error
					scope   = "non-running"
				)
				switch {
				case completedOnly:
					removed, err = store.ClearCompleted(cmd.Context())
					scope = "completed"
				case failedOnly:
					removed, err = store.ClearFailed(cmd.Context())
					scope = "failed"
				default:
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				syncMirror(cmd, trk, store, removed)
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": len(removed), "scope": scope})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s job(s)\n", len(removed), scope)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only delete completed jobs")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only delete failed jobs")
	return cmd
}

func newQueueReclaimCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reclaim",
		Short: "Return jobs with expired leases to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(func(_ *config.Config, store *queue.Store, trk tracker.Tracker) error {
				ids, err := store.ReclaimExpired(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				syncMirror(cmd, trk, store, ids)
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int{"reclaimed": len(ids)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d job(s)\n", len(ids))
				return nil
			})
		},
	}
}
