package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vodforge/internal/api"
	"vodforge/internal/logging"
	"vodforge/internal/queue"
	"vodforge/internal/tracker"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var interval time.Duration
	var mirror bool

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show the state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mirror {
				return showMirroredStatus(cmd, ctx, args[0])
			}
			return ctx.withService(func(svc *api.Service) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				if interval <= 0 {
					interval = cfg.PollInterval()
				}
				status, err := svc.Status(cmd.Context(), args[0])
				for err == nil && wait && !queue.State(status.State).IsTerminal() {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-time.After(interval):
					}
					status, err = svc.Status(cmd.Context(), args[0])
				}
				if err != nil {
					if errors.Is(err, queue.ErrNotFound) {
						return fmt.Errorf("job %s not found", strings.TrimSpace(args[0]))
					}
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, status)
				}
				printJobStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job completes or fails")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval for --wait (default queue.poll_interval)")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "Read the status mirrored to Redis instead of the queue database")
	return cmd
}

func printJobStatus(out io.Writer, status api.JobStatus) {
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderStatusLine("Job", statusInfo, status.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("State", stateKind(status.State), displayLabel(status.State), colorize))
	if status.Stage != "" {
		fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, displayLabel(status.Stage), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo, strconv.Itoa(status.Attempts), colorize))
	if status.Locator != "" {
		fmt.Fprintln(out, renderStatusLine("Locator", statusOK, status.Locator, colorize))
	}
	if status.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, status.Error, colorize))
	}
}

func showMirroredStatus(cmd *cobra.Command, ctx *commandContext, id string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Tracker.Enabled {
		return errors.New("tracker is disabled; set tracker.enabled to read mirrored status")
	}
	mirror, err := tracker.NewRedis(tracker.OptionsFromConfig(cfg), logging.NewNop())
	if err != nil {
		return err
	}
	defer mirror.Close()

	snap, ok, err := mirror.Lookup(cmd.Context(), strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job %s has no mirrored status", strings.TrimSpace(id))
	}
	status := api.FromStateInfo(queue.StateInfo{
		ID:       snap.ID,
		State:    snap.State,
		Stage:    snap.Stage,
		Error:    snap.Error,
		Locator:  snap.Locator,
		Attempts: snap.Attempts,
	})
	if ctx.JSONMode() {
		return writeJSON(cmd, status)
	}
	out := cmd.OutOrStdout()
	printJobStatus(out, status)
	if !snap.UpdatedAt.IsZero() {
		fmt.Fprintln(out, renderStatusLine("Mirrored", statusInfo, api.FormatTime(snap.UpdatedAt), shouldColorize(out)))
	}
	return nil
}
