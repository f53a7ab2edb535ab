package commands

import (
	"fmt"

	"finscrape/lib/records"
	"finscrape/lib/sources/registry"
	"finscrape/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(investCmd)
}

var investCmd = &cobra.Command{
	Use:   "invest <source> <account-id>",
	Short: "Lists the investments held on one account.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		source := buildSource(cmd.Context(), args[0])

		accounts, ok := source.(registry.AccountLister)
		if !ok {
			serviceutil.Fatal("unsupported operation",
				fmt.Errorf("source %q cannot list accounts", source.Name()))
		}
		lister, ok := source.(registry.InvestmentLister)
		if !ok {
			serviceutil.Fatal("unsupported operation",
				fmt.Errorf("source %q cannot list investments", source.Name()))
		}

		all, err := accounts.Accounts(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to fetch accounts", err)
		}
		account, err := records.FindAccount(all, args[1])
		if err != nil {
			serviceutil.Fatal("unknown account", err)
		}

		investments, err := lister.Investments(cmd.Context(), account)
		if err != nil {
			serviceutil.Fatal("failed to fetch investments", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Label", "Code", "Quantity", "Unit value", "Valuation", "Share"})
		for _, inv := range investments {
			t.AppendRow(table.Row{
				inv.Label,
				inv.Code,
				nullDecimal(inv.Quantity),
				nullDecimal(inv.UnitValue),
				inv.Valuation.StringFixed(2),
				nullDecimal(inv.PortfolioShare),
			})
		}
		t.Render()
	},
}

func nullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}
