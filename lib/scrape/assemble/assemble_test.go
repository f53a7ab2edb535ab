package assemble

import (
	"errors"
	"testing"

	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const portfolioTable = `<html><body>
<table id="holdings">
<thead><tr><th>Valeur</th><th>Quantité</th><th>Valorisation en euros</th></tr></thead>
<tbody>
<tr><td>AMUNDI ETF WORLD</td><td>10</td><td>425,00</td></tr>
<tr><td>Sous-total</td><td></td><td>1 000,00</td></tr>
<tr><td>ACME CORP</td><td>5</td><td>212,50</td></tr>
</tbody>
</table>
</body></html>`

type holding struct {
	Label     string
	Quantity  decimal.Decimal
	Valuation decimal.Decimal
}

func holdingNodes(t *testing.T) []extract.Node {
	t.Helper()
	doc, err := page.FromHTMLString("http://example.test/portfolio", portfolioTable)
	require.NoError(t, err)

	nodes, err := Table(doc, "table#holdings tbody tr", "table#holdings th", map[string]string{
		"label":     `^Valeur`,
		"quantity":  `^Quantité`,
		"valuation": `^Valorisation en `,
	})
	require.NoError(t, err)
	return nodes
}

func TestTableResolvesColumnsByHeaderPattern(t *testing.T) {
	nodes := holdingNodes(t)
	require.Len(t, nodes, 3)

	label, err := extract.CellText("label")(nodes[0])
	require.NoError(t, err)
	require.Equal(t, "AMUNDI ETF WORLD", label)

	valuation, err := extract.Decimal(extract.CellText("valuation"), extract.FrenchDecimal)(nodes[2])
	require.NoError(t, err)
	require.Equal(t, "212.5", valuation.String())
}

func TestTableMissingColumnIsHardError(t *testing.T) {
	doc, err := page.FromHTMLString("http://example.test/portfolio", portfolioTable)
	require.NoError(t, err)

	_, err = Table(doc, "table#holdings tbody tr", "table#holdings th", map[string]string{
		"diff": `^\+/- Value latente`,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "diff")
}

func TestRunSkipsByCondition(t *testing.T) {
	quantity := extract.Decimal(extract.CellText("quantity"), extract.FrenchDecimal)

	holdings, err := Run(holdingNodes(t), Schema[holding]{
		Condition: func(item Item) bool {
			_, err := quantity(item.Node)
			return err == nil
		},
		Build: func(item Item) (holding, error) {
			var h holding
			var err error
			if h.Label, err = extract.CellText("label")(item.Node); err != nil {
				return h, err
			}
			if h.Quantity, err = quantity(item.Node); err != nil {
				return h, err
			}
			h.Valuation, err = extract.Decimal(extract.CellText("valuation"), extract.FrenchDecimal)(item.Node)
			return h, err
		},
	})
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	require.Equal(t, "AMUNDI ETF WORLD", holdings[0].Label)
	require.Equal(t, "ACME CORP", holdings[1].Label)
}

func TestRunWrapsBuildErrorWithIndex(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(holdingNodes(t), Schema[holding]{
		Build: func(item Item) (holding, error) {
			if item.Index == 1 {
				return holding{}, boom
			}
			return holding{}, nil
		},
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "item 1")
}

func TestPassSharedSpansOneRun(t *testing.T) {
	labels, err := Run(holdingNodes(t), Schema[string]{
		Build: func(item Item) (string, error) {
			label, err := extract.CellText("label")(item.Node)
			if err != nil {
				return "", err
			}
			if cached, ok := item.Pass.Shared[label]; ok {
				return cached, nil
			}
			item.Pass.Shared[label] = label
			return label, nil
		},
	})
	require.NoError(t, err)
	require.Len(t, labels, 3)
}

func TestDict(t *testing.T) {
	doc := &page.Document{JSON: map[string]any{
		"data": map[string]any{
			"accounts": []any{
				map[string]any{"id": "A1"},
				map[string]any{"id": "A2"},
			},
		},
	}}

	nodes, err := Dict(doc, "data.accounts")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	id, err := extract.Key("id")(nodes[1])
	require.NoError(t, err)
	require.Equal(t, "A2", id)

	_, err = Dict(doc, "data.missing")
	require.Error(t, err)
}

func TestList(t *testing.T) {
	doc, err := page.FromHTMLString("http://example.test/", portfolioTable)
	require.NoError(t, err)

	nodes := List(doc, "table#holdings tbody tr")
	require.Len(t, nodes, 3)
}

func TestRawItems(t *testing.T) {
	nodes := RawItems([]string{"a#1", "b#2"})
	require.Len(t, nodes, 2)

	text, err := extract.RawText()(nodes[0])
	require.NoError(t, err)
	require.Equal(t, "a#1", text)
}
