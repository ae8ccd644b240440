package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vodforge/internal/api"
	"vodforge/internal/rendition"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var id string
	var variants []string

	cmd := &cobra.Command{
		Use:   "submit <input>",
		Short: "Queue a source video for HLS transcoding",
		Long: `Queue a source video for HLS transcoding.

Without --variant the configured rendition ladder is used. Each --variant is
name:WIDTHxHEIGHT:KBPS, for example 720p:1280x720:2500.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var specs []rendition.Spec
			if len(variants) > 0 {
				parsed, err := rendition.ParseList(variants)
				if err != nil {
					return fmt.Errorf("--variant: %w", err)
				}
				specs = parsed
			}
			return ctx.withService(func(svc *api.Service) error {
				result, err := svc.Submit(cmd.Context(), id, args[0], specs...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				switch {
				case result.Outcome == api.SubmitDuplicate:
					fmt.Fprintf(out, "Job %s is already queued or running; submission ignored\n", result.ID)
				case result.Requeued:
					fmt.Fprintf(out, "Re-queued job %s\n", result.ID)
				default:
					fmt.Fprintf(out, "Queued job %s\n", result.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Job id (generated when omitted)")
	cmd.Flags().StringArrayVar(&variants, "variant", nil, "Rendition as name:WIDTHxHEIGHT:KBPS (repeatable)")
	return cmd
}
