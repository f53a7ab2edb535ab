package commands

import (
	"fmt"

	"finscrape/lib/sources/registry"
	"finscrape/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(billsCmd)
}

var billsCmd = &cobra.Command{
	Use:   "bills <source>",
	Short: "Lists the subscriptions of a source and the bills of each.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := buildSource(cmd.Context(), args[0])

		lister, ok := source.(registry.SubscriptionLister)
		if !ok {
			serviceutil.Fatal("unsupported operation",
				fmt.Errorf("source %q cannot list bills", source.Name()))
		}
		subscriptions, err := lister.Subscriptions(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to fetch subscriptions", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Subscription", "Bill", "Date", "Price", "Currency"})
		for _, sub := range subscriptions {
			bills, err := lister.Bills(cmd.Context(), sub.ID)
			if err != nil {
				serviceutil.Fatal("failed to fetch bills", err)
			}
			for _, bill := range bills {
				t.AppendRow(table.Row{
					sub.ID,
					bill.ID,
					bill.Date.Format("2006-01-02"),
					bill.Price.StringFixed(2),
					bill.Currency,
				})
			}
		}
		t.Render()
	},
}
