package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vodforge/internal/config"
	"vodforge/internal/logging"
	"vodforge/internal/preflight"
	"vodforge/internal/queue"
)

type healthReport struct {
	Checks []healthCheck `json:"checks"`
	Queue  queueCounts   `json:"queue"`
	Ready  bool          `json:"ready"`
}

type healthCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type queueCounts struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that a worker could run with the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				rt, err := newWorkerRuntime(cfg, store, logging.NewNop())
				if err != nil {
					return err
				}
				defer rt.close()

				results := preflight.RunAll(cmd.Context(), cfg, rt.targets())
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				report := healthReport{
					Queue: queueCounts{
						Total:     summary.Total,
						Queued:    summary.Queued,
						Active:    summary.Active,
						Completed: summary.Completed,
						Failed:    summary.Failed,
					},
					Ready: len(preflight.Failed(results)) == 0,
				}
				for _, r := range results {
					report.Checks = append(report.Checks, healthCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Queued", statusInfo, fmt.Sprint(summary.Queued), colorize))
				fmt.Fprintln(out, renderStatusLine("Active", statusInfo, fmt.Sprint(summary.Active), colorize))
				fmt.Fprintln(out, renderStatusLine("Completed", statusOK, fmt.Sprint(summary.Completed), colorize))
				failedKind := statusInfo
				if summary.Failed > 0 {
					failedKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprint(summary.Failed), colorize))
				fmt.Fprintln(out)
				if report.Ready {
					fmt.Fprintln(out, "Worker ready")
				} else {
					fmt.Fprintln(out, "Worker not ready")
				}
				return nil
			})
		},
	}
}
