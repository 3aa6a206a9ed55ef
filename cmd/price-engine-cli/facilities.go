package main

import (
	"strings"

	"github.com/spf13/cobra"
)

// newFacilitiesCmd creates the facilities subcommand.
func newFacilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facilities [QUERY...]",
		Short: "Search the facility registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if svc.Registry().Len() == 0 {
				ui.Warning("No facility registry loaded (set registry.path)")
			}

			found := svc.Registry().Search(strings.Join(args, " "))
			if outputJSON {
				return printJSON(found)
			}
			rows := make([][]string, 0, len(found))
			for _, f := range found {
				inst := string(svc.Registry().InstitutionType(f.ID, f.Name))
				rows = append(rows, []string{f.ID, f.Name, f.Region, inst})
			}
			ui.Table([]string{"ID", "Name", "Region", "Institution"}, rows)
			ui.Info("%d facilities", len(found))
			return nil
		},
	}
}
