// Package cmd - verify command
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parkfee/core/engine"
	"parkfee/core/fee"
	"parkfee/core/resolve"
	"parkfee/internal/config"
	"parkfee/internal/logging"
)

var verifyOrderNo string

func dayDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// verifyCmd recomputes an order's fee and classifies the recorded amount
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a recorded order amount against the computed fee",
	Long: `Recompute the fee for an order's entry/exit interval under the rule
version effective at entry, then compare the recorded total against it.

An exact match auto-approves; any deviation is flagged for manual
review. The verdict is persisted as an audit record.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyOrderNo, "order", "", "order number to verify")
	_ = verifyCmd.MarkFlagRequired("order")
}

func runVerify(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	order, err := store.GetOrder(verifyOrderNo)
	if err != nil {
		return err
	}
	if order.ExitTime == nil {
		return fmt.Errorf("order %s has no exit time yet", order.OrderNo)
	}

	cfg := config.Get()
	maxDays := cfg.Billing.MaxIntervalDays
	if maxDays > 0 && order.ExitTime.Sub(order.EntryTime) > dayDuration(maxDays) {
		return fmt.Errorf("order interval exceeds %d days; refusing to verify", maxDays)
	}

	tieBreak, err := resolve.ParseTieBreak(cfg.Billing.TieBreak)
	if err != nil {
		return err
	}
	eng := engine.New(tieBreak)

	rules, err := store.Snapshot(order.CityCode)
	if err != nil {
		return err
	}

	result, verdict, err := eng.Verify(engine.Corpus{Rules: rules},
		resolve.Query{RegionCode: order.CityCode, LotCode: order.LotCode},
		order.EntryTime, *order.ExitTime, order.Total)
	if err != nil {
		return err
	}

	auditID, err := store.SaveVerification(order.OrderNo, result, verdict)
	if err != nil {
		return err
	}
	logging.Info("verification recorded",
		zap.String("order_no", order.OrderNo),
		zap.String("audit_id", auditID),
		zap.String("result", string(verdict.Result)))

	fmt.Printf("Order:    %s\n", order.OrderNo)
	fmt.Printf("Rule:     %s v%d\n", result.MatchedRuleCode, result.MatchedVersionNo)
	fmt.Printf("Expected: %s %s\n", verdict.ExpectedAmount.String(), cfg.Billing.Currency)
	fmt.Printf("Recorded: %s %s\n", verdict.ActualAmount.String(), cfg.Billing.Currency)
	fmt.Printf("Result:   %s -> %s\n", verdict.Result, verdict.Action)
	if verdict.Result == fee.ResultMismatch {
		diff := verdict.ActualAmount.Sub(verdict.ExpectedAmount)
		fmt.Printf("Delta:    %s %s\n", diff.String(), cfg.Billing.Currency)
	}
	return nil
}
