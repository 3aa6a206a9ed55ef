package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seunghun2/daedaesonson/internal/export"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

// newShowCmd creates the show subcommand.
func newShowCmd() *cobra.Command {
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "show FACILITY_ID",
		Short: "Print the stored price table of a facility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			table, err := svc.Table(ctx, args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no price table stored for %s", args[0])
			}
			if err != nil {
				return err
			}

			if outputJSON {
				var data []byte
				if summaryOnly {
					data, err = export.MarshalSummary(table)
				} else {
					data, err = export.MarshalDocument(table)
				}
				if err != nil {
					return err
				}
				return printJSON(json.RawMessage(data))
			}

			if summaryOnly {
				table = &pricing.FacilityPriceTable{FacilityID: table.FacilityID, Representative: table.Representative}
			}
			ui.Info("Facility %s: %d items", table.FacilityID, table.ItemCount())
			printTable(table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "only print representative prices")
	return cmd
}

// newTablesCmd creates the tables subcommand.
func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List stored price tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			summaries, err := svc.Tables(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(summaries)
			}
			if len(summaries) == 0 {
				ui.Info("No price tables stored")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				name := ""
				if f, err := svc.Registry().Get(s.FacilityID); err == nil {
					name = f.Name
				}
				rows = append(rows, []string{s.FacilityID, name, fmt.Sprintf("%d", s.ItemCount), s.UpdatedAt.Format("2006-01-02 15:04")})
			}
			ui.Table([]string{"Facility", "Name", "Items", "Updated"}, rows)
			return nil
		},
	}
}

// newExportCmd creates the export subcommand.
func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export [FACILITY_ID...]",
		Short: "Write stored price tables to an Excel workbook",
		Long: `Export writes the stored tables of the given facilities, or of every
stored facility when none are named, to an .xlsx workbook with a Prices sheet
and a Representative sheet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			ids := args
			if len(ids) == 0 {
				summaries, err := svc.Tables(ctx)
				if err != nil {
					return err
				}
				for _, s := range summaries {
					ids = append(ids, s.FacilityID)
				}
			}

			bar := ui.ProgressBar(len(ids), "Loading tables")
			tables := make([]*pricing.FacilityPriceTable, 0, len(ids))
			for _, id := range ids {
				table, err := svc.Table(ctx, id)
				if err != nil {
					return fmt.Errorf("load %s: %w", id, err)
				}
				tables = append(tables, table)
				if bar != nil {
					_ = bar.Add(1)
				}
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			if err := export.WriteWorkbook(f, tables); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			if outputJSON {
				return printJSON(map[string]any{"path": outPath, "facilities": len(tables)})
			}
			ui.Success("Wrote %d tables to %s", len(tables), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output .xlsx path (required)")
	return cmd
}
