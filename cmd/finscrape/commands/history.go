package commands

import (
	"fmt"

	"finscrape/lib/sources/registry"
	"finscrape/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <source> <account-id>",
	Short: "Lists the transaction history of one account.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		source := buildSource(cmd.Context(), args[0])

		lister, ok := source.(registry.HistoryLister)
		if !ok {
			serviceutil.Fatal("unsupported operation",
				fmt.Errorf("source %q cannot list history", source.Name()))
		}
		history, err := lister.History(cmd.Context(), args[1])
		if err != nil {
			serviceutil.Fatal("failed to fetch history", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Date", "Label", "Amount"})
		for _, tx := range history {
			t.AppendRow(table.Row{
				tx.Date.Format("2006-01-02"),
				tx.Label,
				tx.Amount.StringFixed(2),
			})
		}
		t.Render()
	},
}
