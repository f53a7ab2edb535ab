package commands

import (
	"sort"

	"finscrape/lib/sources/registry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Lists the built-in sources.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		names := registry.New().Names()
		sort.Strings(names)

		t := newTable()
		t.AppendHeader(table.Row{"Source"})
		for _, name := range names {
			t.AppendRow(table.Row{name})
		}
		t.Render()
	},
}
