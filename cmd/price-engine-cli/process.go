package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seunghun2/daedaesonson/internal/export"
	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// structuredFileName marks operator-entered rows inside a facility folder.
const structuredFileName = "structured.json"

// newProcessCmd creates the process subcommand.
func newProcessCmd() *cobra.Command {
	var (
		facilityID     string
		facilityName   string
		institution    string
		structuredPath string
	)

	cmd := &cobra.Command{
		Use:   "process --facility ID FILE...",
		Short: "Build and store the price table of one facility",
		Long: `Process reads each price document, extracts priced lines, classifies
them, merges them with the facility's structured rows and stores the
resulting table. Documents may be .pdf, .txt/.md, positioned fragment JSON
or candidate JSON ({"items":[{"name","price","detail"}]}).

A document that cannot be read is reported as a warning and contributes no
lines.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if facilityID == "" {
				return fmt.Errorf("--facility is required")
			}

			docs, err := sourcesFromPaths(args)
			if err != nil {
				return err
			}

			req := ingest.FacilityRequest{
				FacilityID:   facilityID,
				FacilityName: facilityName,
				Institution:  pricing.ParseInstitutionType(institution),
				Documents:    docs,
			}
			if structuredPath != "" {
				req.Structured, err = readStructured(structuredPath)
				if err != nil {
					return err
				}
			}

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			stop := ui.Spinner(fmt.Sprintf("Processing %s (%d documents)", facilityID, len(docs)))
			result, err := svc.Process(ctx, req)
			stop()
			if err != nil {
				return err
			}

			if outputJSON {
				doc, err := export.MarshalDocument(result.Table)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"document": json.RawMessage(doc),
					"report":   result.Report,
					"warnings": result.Warnings,
				})
			}

			for _, w := range result.Warnings {
				ui.Warning("%s", w)
			}
			printTable(result.Table)
			printReport(result.Report)
			ui.Success("Stored %d items for %s in %s", result.Table.ItemCount(), facilityID, FormatDuration(result.Duration))
			return nil
		},
	}

	cmd.Flags().StringVarP(&facilityID, "facility", "f", "", "facility id (required)")
	cmd.Flags().StringVar(&facilityName, "name", "", "facility name, used to infer public or private operation")
	cmd.Flags().StringVar(&institution, "institution", "", "public or private (default: registry or name)")
	cmd.Flags().StringVar(&structuredPath, "structured", "", "JSON file of structured rows for this run")
	return cmd
}

func sourcesFromPaths(paths []string) ([]ingest.Source, error) {
	docs := make([]ingest.Source, 0, len(paths))
	for _, p := range paths {
		src, err := ingest.SourceFromPath(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		docs = append(docs, src)
	}
	return docs, nil
}

func readStructured(path string) ([]pricing.LineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read structured rows: %w", err)
	}
	items, err := ingest.DecodeStructured(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// facilityRequestsFromDir treats every subdirectory of dir as one facility
// named after the folder.
func facilityRequestsFromDir(dir string) ([]ingest.FacilityRequest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch directory: %w", err)
	}

	var reqs []ingest.FacilityRequest
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		folder := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", folder, err)
		}

		req := ingest.FacilityRequest{FacilityID: entry.Name()}
		var paths []string
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			path := filepath.Join(folder, f.Name())
			if f.Name() == structuredFileName {
				if req.Structured, err = readStructured(path); err != nil {
					return nil, err
				}
				continue
			}
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, p := range paths {
			src, err := ingest.SourceFromPath(p)
			if err != nil {
				logger.Warn().Err(err).Str("path", p).Msg("Skipping unsupported document")
				continue
			}
			req.Documents = append(req.Documents, src)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func printTable(table *pricing.FacilityPriceTable) {
	for _, c := range table.Categories {
		ui.Section(fmt.Sprintf("%s (%d)", c.DisplayName, len(c.Items)))
		rows := make([][]string, 0, len(c.Items))
		for _, item := range c.Items {
			rows = append(rows, []string{item.Group, item.Name, FormatWon(item.Price), sizeLabel(item), item.Detail})
		}
		ui.Table([]string{"Group", "Name", "Price", "Size", "Detail"}, rows)
	}

	if len(table.Representative) == 0 {
		return
	}
	ui.Section("Representative")
	for _, g := range pricing.SuperGroups() {
		item, ok := table.Representative[g]
		if !ok {
			continue
		}
		ui.KeyValue(string(g), fmt.Sprintf("%s %s %s", item.Name, sizeLabel(item), FormatWon(item.Price)))
	}
}

func printReport(r ingest.Report) {
	ui.Section("Report")
	ui.KeyValue("documents", fmt.Sprintf("%d (%d failed, %d cached)", r.Documents, r.FailedDocuments, r.CachedDocuments))
	ui.KeyValue("lines", r.Lines)
	ui.KeyValue("candidates", r.Candidates)
	ui.KeyValue("dropped", r.DroppedLines)
	ui.KeyValue("corrections", r.Corrections)
	ui.KeyValue("structured", r.Structured)
	ui.KeyValue("duplicates", r.Duplicates)
}

func sizeLabel(item pricing.LineItem) string {
	if !item.HasSize() {
		return ""
	}
	return fmt.Sprintf("%g%s", *item.SizeValue, item.SizeUnit)
}
