package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStructuredCmd creates the structured subcommand.
func newStructuredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structured",
		Short: "Manage operator-entered price rows",
		Long: `Structured rows are entered by an operator and take part in every
later run of the facility. They are deduplicated against document lines and
win representative ties.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import FACILITY_ID FILE",
		Short: "Replace a facility's structured rows from a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			items, err := readStructured(args[1])
			if err != nil {
				return err
			}

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.SetStructured(ctx, args[0], items); err != nil {
				return err
			}
			if outputJSON {
				return printJSON(map[string]any{"facility_id": args[0], "items": len(items)})
			}
			ui.Success("Stored %d structured rows for %s", len(items), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list FACILITY_ID",
		Short: "Print a facility's structured rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			items, err := svc.Structured(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(items)
			}
			if len(items) == 0 {
				ui.Info("No structured rows for %s", args[0])
				return nil
			}

			rows := make([][]string, 0, len(items))
			for i, item := range items {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), item.Name, FormatWon(item.Price), sizeLabel(item), item.Detail})
			}
			ui.Table([]string{"#", "Name", "Price", "Size", "Detail"}, rows)
			return nil
		},
	})
	return cmd
}
