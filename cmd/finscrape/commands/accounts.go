package commands

import (
	"fmt"

	"finscrape/lib/sources/registry"
	"finscrape/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts <source>",
	Short: "Lists the accounts of a configured source.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := buildSource(cmd.Context(), args[0])

		lister, ok := source.(registry.AccountLister)
		if !ok {
			serviceutil.Fatal("unsupported operation",
				fmt.Errorf("source %q cannot list accounts", source.Name()))
		}
		accounts, err := lister.Accounts(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to fetch accounts", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Label", "Balance", "Currency", "Type"})
		for _, account := range accounts {
			t.AppendRow(table.Row{
				account.ID,
				account.Label,
				account.Balance.StringFixed(2),
				account.Currency,
				account.Type.String(),
			})
		}
		t.Render()
	},
}
