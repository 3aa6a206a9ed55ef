package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// newRunsCmd creates the runs command.
func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs FACILITY_ID",
		Short: "Show the processing history of a facility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			runs, err := svc.Runs(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(runs)
			}
			if len(runs) == 0 {
				ui.Info("No runs recorded for %s", args[0])
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				note := run.Error
				if note == "" && len(run.Warnings) > 0 {
					note = fmt.Sprintf("%d warnings", len(run.Warnings))
				}
				rows = append(rows, []string{
					run.OccurredAt.Local().Format(time.DateTime),
					run.Status,
					strconv.Itoa(run.Items),
					fmt.Sprintf("%d/%d", run.Documents-run.FailedDocuments, run.Documents),
					FormatDuration(run.Duration),
					note,
				})
			}
			ui.Table([]string{"When", "Status", "Items", "Docs", "Took", "Note"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

// newDriftCmd creates the drift command.
func newDriftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drift",
		Short: "Report stale price tables and failing facilities",
		Long: `A table is stale when it was not rebuilt within the configured freshness
threshold. A facility is failing when its most recent run failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.CheckDrift(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(result)
			}
			if result.TotalAlerts == 0 {
				ui.Success("No drift detected (threshold %s)", result.Threshold)
				return nil
			}

			if len(result.StaleTables) > 0 {
				ui.Section("Stale tables")
				rows := make([][]string, 0, len(result.StaleTables))
				for _, st := range result.StaleTables {
					rows = append(rows, []string{
						st.FacilityID,
						st.UpdatedAt.Local().Format(time.DateTime),
						fmt.Sprintf("%dd", int(st.Age.Hours()/24)),
					})
				}
				ui.Table([]string{"Facility", "Updated", "Age"}, rows)
			}

			if len(result.FailingFacilities) > 0 {
				ui.Section("Failing facilities")
				rows := make([][]string, 0, len(result.FailingFacilities))
				for _, f := range result.FailingFacilities {
					rows = append(rows, []string{f.FacilityID, f.FailedAt.Local().Format(time.DateTime), f.Error})
				}
				ui.Table([]string{"Facility", "Failed", "Error"}, rows)
			}

			ui.Warning("%d drift alerts", result.TotalAlerts)
			return nil
		},
	}
}
