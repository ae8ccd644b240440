package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vodforge/internal/api"
	"vodforge/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var stateFilters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := parseStateFilters(stateFilters)
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				jobs, err := svc.List(cmd.Context(), states...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderColumns(jobListColumns(), buildJobRows(jobs)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&stateFilters, "state", "s", nil, "Filter by state (queued, active, completed, failed)")
	return cmd
}

func parseStateFilters(values []string) ([]queue.State, error) {
	states := make([]queue.State, 0, len(values))
	for _, value := range values {
		state, ok := queue.ParseState(value)
		if !ok {
			return nil, fmt.Errorf("unknown state %q", strings.TrimSpace(value))
		}
		states = append(states, state)
	}
	return states, nil
}

func jobListColumns() []tableColumn {
	return []tableColumn{
		{Header: "ID"},
		{Header: "State"},
		{Header: "Stage"},
		{Header: "Attempts", Align: alignRight},
		{Header: "Updated"},
		{Header: "Detail", MaxWidth: detailColumnWidth},
	}
}

func buildJobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		detail := job.Locator
		if job.Error != "" {
			detail = job.Error
		}
		if detail == "" {
			detail = job.Input
		}
		rows = append(rows, []string{
			job.ID,
			displayLabel(job.State),
			displayLabel(job.Stage),
			strconv.Itoa(job.Attempts),
			job.UpdatedAt,
			detail,
		})
	}
	return rows
}
