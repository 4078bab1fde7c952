// Package cmd - orders command
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"parkfee/adapters/storage"
	"parkfee/internal/config"
)

var (
	ordersPlate string
	ordersCity  string
)

// ordersCmd groups parking order subcommands
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Manage parking orders and arrears",
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create [file.json]",
	Short: "Create a parking order",
	Long: `Create a parking order from a JSON document. The arrears amount is
derived as max(0, total - paid); an order number is generated when the
document omits one.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrdersCreate,
}

var ordersShowCmd = &cobra.Command{
	Use:   "show [order_no]",
	Short: "Show a parking order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrdersShow,
}

var ordersArrearsCmd = &cobra.Command{
	Use:   "arrears",
	Short: "List orders with outstanding arrears",
	Args:  cobra.NoArgs,
	RunE:  runOrdersArrears,
}

func init() {
	ordersArrearsCmd.Flags().StringVar(&ordersPlate, "plate", "", "filter by plate number")
	ordersArrearsCmd.Flags().StringVar(&ordersCity, "city", "", "filter by city code")

	ordersCmd.AddCommand(ordersCreateCmd)
	ordersCmd.AddCommand(ordersShowCmd)
	ordersCmd.AddCommand(ordersArrearsCmd)
}

func runOrdersCreate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var req storage.CreateOrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse order document: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	order, err := store.CreateOrder(req)
	if err != nil {
		return err
	}
	printOrder(*order)
	return nil
}

func runOrdersShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	order, err := store.GetOrder(args[0])
	if err != nil {
		return err
	}
	printOrder(*order)
	return nil
}

func runOrdersArrears(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	orders, err := store.ListArrears(ordersPlate, ordersCity)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("No arrears orders")
		return nil
	}
	currency := config.Get().Billing.Currency
	for _, order := range orders {
		fmt.Printf("%-20s plate=%-10s city=%-6s arrears=%s %s status=%s\n",
			order.OrderNo, order.PlateNo, order.CityCode,
			order.Arrears.String(), currency, order.Status)
	}
	return nil
}

func printOrder(order storage.Order) {
	currency := config.Get().Billing.Currency
	exit := "-"
	if order.ExitTime != nil {
		exit = order.ExitTime.Format(time.RFC3339)
	}
	fmt.Printf("Order:   %s (%s)\n", order.OrderNo, order.Status)
	fmt.Printf("Vehicle: %s  city=%s lot=%s\n", order.PlateNo, order.CityCode, order.LotCode)
	fmt.Printf("Rule:    %s\n", order.RuleCode)
	fmt.Printf("Entry:   %s\n", order.EntryTime.Format(time.RFC3339))
	fmt.Printf("Exit:    %s\n", exit)
	fmt.Printf("Amounts: total=%s paid=%s arrears=%s %s\n",
		order.Total.String(), order.Paid.String(), order.Arrears.String(), currency)
}
