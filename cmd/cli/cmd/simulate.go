// Package cmd - simulate command
package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"parkfee/core/engine"
	"parkfee/core/fee"
	"parkfee/core/resolve"
	"parkfee/internal/config"
	"parkfee/internal/logging"

	"go.uber.org/zap"
)

var (
	simRule   string
	simCity   string
	simLot    string
	simEntry  string
	simExit   string
	simFormat string
)

// simulateCmd computes a fee without touching any order
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compute the fee for an entry/exit interval",
	Long: `Resolve the applicable rule version and compute the exact fee for
an [entry, exit) interval.

The rule is picked either explicitly with --rule, or by scope with
--city and --lot through the resolver. Timestamps are RFC3339.

Examples:
  parkfee simulate --rule CBD-STD --entry 2026-03-01T08:00:00+08:00 --exit 2026-03-02T09:05:00+08:00
  parkfee simulate --city 0571 --lot HZ-001 --entry 2026-03-01T08:00:00+08:00 --exit 2026-03-01T10:15:00+08:00 --format json`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simRule, "rule", "", "rule code (bypasses scope resolution)")
	simulateCmd.Flags().StringVar(&simCity, "city", "", "city/region code for scope resolution")
	simulateCmd.Flags().StringVar(&simLot, "lot", "", "lot code for scope resolution")
	simulateCmd.Flags().StringVar(&simEntry, "entry", "", "entry time (RFC3339)")
	simulateCmd.Flags().StringVar(&simExit, "exit", "", "exit time (RFC3339)")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "", "output format (text, json)")
	_ = simulateCmd.MarkFlagRequired("entry")
	_ = simulateCmd.MarkFlagRequired("exit")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	entry, exit, err := parseInterval(simEntry, simExit)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.Get()
	tieBreak, err := resolve.ParseTieBreak(cfg.Billing.TieBreak)
	if err != nil {
		return err
	}
	eng := engine.New(tieBreak)

	var result *fee.Result
	switch {
	case simRule != "":
		rule, err := store.GetRule(simRule)
		if err != nil {
			return err
		}
		result, err = eng.QuoteRule(rule, entry, exit)
		if err != nil {
			return err
		}
	case simCity != "" && simLot != "":
		rules, err := store.Snapshot(simCity)
		if err != nil {
			return err
		}
		result, err = eng.Quote(engine.Corpus{Rules: rules},
			resolve.Query{RegionCode: simCity, LotCode: simLot}, entry, exit)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --rule or both --city and --lot are required")
	}

	logging.Debug("simulation complete",
		zap.String("rule_code", result.MatchedRuleCode),
		zap.Int("version_no", result.MatchedVersionNo),
		zap.Int64("total_cents", result.TotalAmount.Cents()))

	return printResult(result)
}

// parseInterval parses and bounds the [entry, exit) interval before the
// engine runs; multi-month intervals are a caller mistake, not a fee.
func parseInterval(entryValue, exitValue string) (time.Time, time.Time, error) {
	entry, err := time.Parse(time.RFC3339, entryValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid entry time: %w", err)
	}
	exit, err := time.Parse(time.RFC3339, exitValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid exit time: %w", err)
	}

	maxDays := config.Get().Billing.MaxIntervalDays
	if maxDays > 0 && exit.Sub(entry) > time.Duration(maxDays)*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("interval exceeds %d days; split the request", maxDays)
	}
	return entry, exit, nil
}

func printResult(result *fee.Result) error {
	cfg := config.Get()
	format := simFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}

	if format == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Rule:     %s v%d\n", result.MatchedRuleCode, result.MatchedVersionNo)
	fmt.Printf("Duration: %d minutes\n", result.DurationMinutes)
	fmt.Printf("Total:    %s %s\n", result.TotalAmount.String(), cfg.Billing.Currency)
	if cfg.Output.ShowBreakdown && len(result.Breakdown) > 0 {
		fmt.Println("Breakdown:")
		for _, charge := range result.Breakdown {
			capNote := ""
			if charge.CappedDays > 0 {
				capNote = fmt.Sprintf(" (capped on %d day(s))", charge.CappedDays)
			}
			fmt.Printf("  %-16s %-9s %5d min  %s%s\n",
				charge.SegmentName, charge.SegmentType, charge.Minutes,
				charge.Amount.String(), capNote)
		}
	}
	return nil
}
