// Package cmd provides the CLI commands for parkfee.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parkfee/adapters/storage"
	"parkfee/internal/config"
	"parkfee/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "parkfee",
	Short: "Parking billing rule management and fee computation",
	Long: `parkfee manages versioned parking billing rules and computes
deterministic parking fees.

The same entry/exit interval under the same rule version always yields
the same fee, to the cent; recorded order amounts that deviate from the
computed fee are flagged for manual review.

Examples:
  parkfee rules upsert rule.json
  parkfee simulate --rule CBD-STD --entry 2026-03-01T08:00:00+08:00 --exit 2026-03-01T10:15:00+08:00
  parkfee verify --order 202603010001`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.parkfee.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openStore opens the configured rule/order store.
func openStore() (*storage.Store, error) {
	cfg := config.Get()
	store, err := storage.Open(cfg.Storage.DatabasePath, cfg.Storage.SnowflakeNode, cfg.Billing.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("parkfee version 0.1.0")
	},
}
