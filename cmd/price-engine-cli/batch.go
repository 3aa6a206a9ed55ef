package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seunghun2/daedaesonson/internal/ingest"
)

// newBatchCmd creates the batch subcommand.
func newBatchCmd() *cobra.Command {
	var failFast bool

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Process every facility folder under a directory",
		Long: `Batch treats each subdirectory of DIR as one facility, named after the
folder. Every document inside is processed; a structured.json file holds the
facility's operator-entered rows. Facilities run concurrently up to
batch.max_concurrent_facilities and each successful table is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reqs, err := facilityRequestsFromDir(args[0])
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				ui.Warning("No facility folders under %s", args[0])
				return nil
			}

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			ui.Step("Processing %d facilities with %d workers", len(reqs), cfg.Batch.MaxConcurrentFacilities)
			progress := ui.NewBatchProgress(len(reqs))
			res, err := svc.ProcessBatch(ctx, reqs, func(item ingest.BatchItem) {
				progress.Record(item.Err != nil)
			})
			progress.Wait()
			if err != nil {
				return err
			}

			if outputJSON {
				items := make([]map[string]any, 0, len(res.Items))
				for _, item := range res.Items {
					entry := map[string]any{"facility_id": item.FacilityID}
					if item.Err != nil {
						entry["error"] = item.Err.Error()
					} else {
						entry["items"] = item.Result.Table.ItemCount()
						entry["report"] = item.Result.Report
						entry["warnings"] = item.Result.Warnings
					}
					items = append(items, entry)
				}
				if err := printJSON(map[string]any{
					"job_id":      res.JobID,
					"succeeded":   res.Succeeded,
					"failed":      res.Failed,
					"duration_ms": res.Duration.Milliseconds(),
					"facilities":  items,
				}); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(res.Items))
				for _, item := range res.Items {
					if item.Err != nil {
						rows = append(rows, []string{item.FacilityID, "failed", "", item.Err.Error()})
						continue
					}
					rows = append(rows, []string{
						item.FacilityID,
						"ok",
						fmt.Sprintf("%d", item.Result.Table.ItemCount()),
						fmt.Sprintf("%d warnings", len(item.Result.Warnings)),
					})
				}
				ui.Table([]string{"Facility", "Status", "Items", "Notes"}, rows)
				ui.Info("Job %s finished in %s: %d succeeded, %d failed",
					res.JobID, FormatDuration(res.Duration), res.Succeeded, res.Failed)
			}

			if failFast && res.Failed > 0 {
				return fmt.Errorf("%d of %d facilities failed", res.Failed, len(res.Items))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failFast, "strict", false, "exit non-zero when any facility fails")
	return cmd
}
