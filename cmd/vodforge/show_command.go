package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vodforge/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the full record of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				job, err := svc.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", strings.TrimSpace(args[0]))
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:         %s\n", job.ID)
				fmt.Fprintf(out, "Input:      %s\n", job.Input)
				fmt.Fprintf(out, "Variants:   %s\n", strings.Join(job.Variants, ", "))
				fmt.Fprintf(out, "State:      %s\n", displayLabel(job.State))
				if job.Stage != "" {
					fmt.Fprintf(out, "Stage:      %s\n", displayLabel(job.Stage))
				}
				fmt.Fprintf(out, "Attempts:   %d\n", job.Attempts)
				if job.LeaseOwner != "" {
					fmt.Fprintf(out, "Worker:     %s\n", job.LeaseOwner)
				}
				fmt.Fprintf(out, "Created:    %s\n", job.CreatedAt)
				if job.StartedAt != "" {
					fmt.Fprintf(out, "Started:    %s\n", job.StartedAt)
				}
				if job.FinishedAt != "" {
					fmt.Fprintf(out, "Finished:   %s\n", job.FinishedAt)
				}
				if job.Locator != "" {
					fmt.Fprintf(out, "Locator:    %s\n", job.Locator)
				}
				if job.Error != "" {
					fmt.Fprintf(out, "Error:      %s\n", job.Error)
				}
				return nil
			})
		},
	}
}
