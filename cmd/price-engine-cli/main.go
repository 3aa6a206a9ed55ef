// Package main provides the price engine CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seunghun2/daedaesonson/internal/config"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/service"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

var version = "0.1.0"

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	noColor    bool
	verbose    bool

	// Configuration, logger and output
	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "price-engine-cli",
	Short: "Extract, classify and store facility price schedules",
	Long: `price-engine-cli turns facility price documents (PDF, text, positioned
fragments or candidate JSON) into categorized price tables with
representative prices, and stores them for the API.

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		}
		format := cfg.Observability.LogFormat
		if outputJSON {
			format = "json"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      format,
			ServiceName: "price-engine-cli",
			Output:      os.Stderr,
			NoColor:     noColor || !IsTerminal(),
		})

		ui = NewUI(outputJSON, noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newTablesCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newStructuredCmd())
	rootCmd.AddCommand(newFacilitiesCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newDriftCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openService(ctx context.Context) (*service.Service, error) {
	svc, err := service.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := storage.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if statusOnly {
				status, err := storage.CheckMigrations(ctx, db)
				if err != nil {
					return err
				}
				if outputJSON {
					return printJSON(status)
				}
				for _, name := range status.Applied {
					ui.Success("%s", name)
				}
				for _, name := range status.Pending {
					ui.Warning("%s (pending)", name)
				}
				return nil
			}

			applied, err := storage.Migrate(ctx, db)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(map[string]any{"applied": applied})
			}
			if len(applied) == 0 {
				ui.Info("Database is up to date")
				return nil
			}
			for _, name := range applied {
				ui.Success("Applied %s", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "only report migration status")
	return cmd
}

// newCacheCmd creates the cache subcommand.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the document extraction cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Drop every cached document extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			purged, err := svc.PurgeCache(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			if outputJSON {
				return printJSON(map[string]any{"driver": cfg.Cache.Driver, "purged": purged})
			}
			ui.Success("Purged %d cached extractions (%s)", purged, cfg.Cache.Driver)
			return nil
		},
	})
	return cmd
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return printJSON(map[string]string{"version": version})
			}
			fmt.Println("price-engine-cli", version)
			return nil
		},
	}
}
