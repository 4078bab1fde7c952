// Package cmd - rules command
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"parkfee/adapters/storage"
	"parkfee/core/billing"
)

var (
	rulesCity string
	rulesLot  string
)

// rulesCmd groups rule corpus management subcommands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage billing rules and their versions",
}

var rulesUpsertCmd = &cobra.Command{
	Use:   "upsert [file.json]",
	Short: "Create or update a rule and append a new version",
	Long: `Upsert a billing rule from a JSON request document.

The rule master row is created or updated by rule_code; the version in
the document is appended with the next version number. A version whose
effective range overlaps an existing version at the same priority is
rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesUpsert,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List billing rules",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show [rule_code]",
	Short: "Show a rule and its full version history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesShow,
}

func init() {
	rulesListCmd.Flags().StringVar(&rulesCity, "city", "", "filter by city/region code")
	rulesListCmd.Flags().StringVar(&rulesLot, "lot", "", "filter by lot code")

	rulesCmd.AddCommand(rulesUpsertCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}

func runRulesUpsert(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var req storage.UpsertRuleRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse request document: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rule, err := store.UpsertRule(req)
	if err != nil {
		return err
	}

	latest := rule.Versions[len(rule.Versions)-1]
	fmt.Printf("Rule %s (%s) now has %d version(s); appended v%d effective from %s\n",
		rule.RuleCode, rule.Name, len(rule.Versions), latest.VersionNo,
		latest.EffectiveFrom.Format(time.RFC3339))
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rules, err := store.ListRules(rulesCity, rulesLot)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("No rules found")
		return nil
	}
	for _, rule := range rules {
		scope := "all lots"
		if rule.Scope.IsLotSpecific() {
			scope = fmt.Sprintf("%d lot(s)", len(rule.Scope.LotCodes))
		}
		fmt.Printf("%-20s %-32s %-9s region=%s %s versions=%d\n",
			rule.RuleCode, rule.Name, rule.Status, rule.Scope.RegionCode, scope, len(rule.Versions))
	}
	return nil
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rule, err := store.GetRule(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Rule:   %s (%s)\n", rule.RuleCode, rule.Name)
	fmt.Printf("Status: %s\n", rule.Status)
	fmt.Printf("Scope:  region=%s lots=%v\n", rule.Scope.RegionCode, rule.Scope.LotCodes)
	for _, version := range rule.Versions {
		to := "open"
		if version.EffectiveTo != nil {
			to = version.EffectiveTo.Format(time.RFC3339)
		}
		fmt.Printf("  v%d priority=%d effective %s - %s\n",
			version.VersionNo, version.Priority,
			version.EffectiveFrom.Format(time.RFC3339), to)
		for _, seg := range version.Segments {
			describeSegment(seg)
		}
	}
	return nil
}

func describeSegment(seg billing.Segment) {
	window := fmt.Sprintf("%s-%s %s", seg.Window.StartClock(), seg.Window.EndClock(), seg.Window.TZName)
	switch seg.Kind {
	case billing.KindFree:
		fmt.Printf("    %-16s free     %s\n", seg.Name, window)
	case billing.KindPeriodic:
		capNote := ""
		if seg.MaxCharge != nil {
			capNote = fmt.Sprintf(" cap=%s", seg.MaxCharge.String())
		}
		fmt.Printf("    %-16s periodic %s %s/%dmin free=%dmin%s\n",
			seg.Name, window, seg.UnitPrice.String(), seg.UnitMinutes, seg.FreeMinutes, capNote)
	case billing.KindTiered:
		fmt.Printf("    %-16s tiered   %s %d tier(s) free=%dmin\n",
			seg.Name, window, len(seg.Tiers), seg.FreeMinutes)
	}
}
