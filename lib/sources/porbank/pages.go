package porbank

import (
	"strings"

	"finscrape/lib/records"
	"finscrape/lib/scrape/assemble"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"
	"finscrape/lib/textutil"

	"github.com/shopspring/decimal"
)

// Column headers of the synthesis table. Balance and latent-value headers
// embed the currency, hence the patterns.
var portfolioColumns = map[string]string{
	"raw_label":            `^Portefeuille`,
	"balance":              `^Valorisation en `,
	"valuation_diff":       `^\+/- Value latente en [^%]`,
	"valuation_diff_ratio": `^\+/- Value latente en %`,
}

func labelType(label string) records.AccountType {
	if textutil.MatchName(label, []string{"pea"}) {
		return records.AccountPEA
	}
	return records.AccountMarket
}

var stripSpaces = extract.Replacement{Old: " ", New: ""}

func portfolioSchema(currency string) assemble.Schema[records.Account] {
	rawID := extract.Replace(extract.Text("a"), stripSpaces)
	balance := extract.Decimal(extract.CellText("balance"), extract.FrenchDecimal)

	return assemble.Schema[records.Account]{
		Condition: func(item assemble.Item) bool {
			// The consolidated view row aggregates the others and
			// rows without a balance carry nothing to merge.
			id, err := rawID(item.Node)
			if err != nil || id == "Vueconsolidée" {
				return false
			}
			_, err = balance(item.Node)
			return err == nil
		},
		Build: func(item assemble.Item) (records.Account, error) {
			id, err := rawID(item.Node)
			if err != nil {
				return records.Account{}, err
			}
			// The primary listing prefixes ids with an agency
			// code; the ".1" suffix keeps both listings' ids
			// distinct while preserving the prefix relation.
			id += ".1"

			// Only the text outside the anchor is the label.
			label, err := extract.Base(
				extract.Cell("raw_label"), extract.OwnText("."),
			)(item.Node)
			if err != nil {
				return records.Account{}, err
			}
			value, err := balance(item.Node)
			if err != nil {
				return records.Account{}, err
			}
			diff, err := extract.Optional(
				extract.Decimal(extract.CellText("valuation_diff"), extract.FrenchDecimal),
			)(item.Node)
			if err != nil {
				return records.Account{}, err
			}
			ratio, err := extract.Optional(extract.Percent(
				extract.Decimal(extract.CellText("valuation_diff_ratio"), extract.FrenchDecimal),
			))(item.Node)
			if err != nil {
				return records.Account{}, err
			}
			link, err := extract.Default(extract.Attr("a", "href"), "")(item.Node)
			if err != nil {
				return records.Account{}, err
			}

			return records.Account{
				ID:                 id,
				Label:              label,
				Balance:            value,
				Currency:           currency,
				Type:               labelType(label),
				ValuationDiff:      diff,
				ValuationDiffRatio: ratio,
				URL:                link,
			}, nil
		},
	}
}

func extractPortfolioAccounts(d *page.Document) ([]records.Account, error) {
	currency, err := extract.Default(
		extract.Currency(extract.Text("table#tabSYNT thead span")), "",
	)(extract.FromSelection(d.HTML.Selection))
	if err != nil {
		return nil, err
	}

	rows, err := assemble.Table(d,
		"table#tabSYNT tr:has(td)",
		"table#tabSYNT th",
		portfolioColumns,
	)
	if err != nil {
		return nil, err
	}
	return assemble.Run(rows, portfolioSchema(currency))
}

// Column headers of the valuation table. Several cells hold two stacked
// values in distinct divs.
var investmentColumns = map[string]string{
	"label":     `^Valeur`,
	"quantity":  `^Quantité`,
	"unitvalue": `^Cours`,
	"valuation": `^Valorisation`,
	"diff":      `^\+/- Value latente`,
}

func div(n int) string {
	if n == 1 {
		return "div:nth-of-type(1)"
	}
	return "div:nth-of-type(2)"
}

var investmentSchema = assemble.Schema[records.Investment]{
	Condition: func(item assemble.Item) bool {
		// Rows whose valuation cell holds no number ("NB") are
		// informational.
		_, err := extract.Base(
			extract.Cell("valuation"),
			extract.Decimal(extract.Text(div(1)), extract.FrenchDecimal),
		)(item.Node)
		return err == nil
	},
	Build: func(item assemble.Item) (records.Investment, error) {
		label, err := extract.Base(extract.Cell("label"), extract.Text(div(1)))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		code, err := extract.Default(
			extract.Base(extract.Cell("label"), extract.Text(div(2))), "",
		)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		if !records.IsISIN(code) {
			code = ""
		}

		quantity, err := extract.Decimal(
			extract.CellText("quantity"), extract.FrenchDecimal,
		)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}

		unitValue, unitPrice, err := extractUnitCell(item.Node)
		if err != nil {
			return records.Investment{}, err
		}

		valuation, err := extract.Base(
			extract.Cell("valuation"),
			extract.Decimal(extract.Text(div(1)), extract.FrenchDecimal),
		)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		share, err := extract.Optional(extract.Percent(extract.Base(
			extract.Cell("valuation"),
			extract.Decimal(extract.Text(div(2)), extract.FrenchDecimal),
		)))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		diff, err := extract.Optional(extract.Base(
			extract.Cell("diff"),
			extract.Decimal(extract.Text(div(1)), extract.FrenchDecimal),
		))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		diffRatio, err := extract.Optional(extract.Percent(extract.Base(
			extract.Cell("diff"),
			extract.Decimal(extract.Text(div(2)), extract.FrenchDecimal),
		)))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}

		return records.Investment{
			Label:          label,
			Code:           code,
			CodeType:       records.CodeTypeFor(code),
			Quantity:       decimal.NullDecimal{Decimal: quantity, Valid: true},
			UnitPrice:      unitPrice,
			UnitValue:      unitValue,
			Valuation:      valuation,
			Diff:           diff,
			DiffRatio:      diffRatio,
			PortfolioShare: share,
		}, nil
	},
}

// extractUnitCell reads the stacked unit-value cell. A quote in a foreign
// currency or quoted as a percentage (bonds) leaves the unit value unset;
// the second div is the unit purchase price.
func extractUnitCell(n extract.Node) (decimal.NullDecimal, decimal.NullDecimal, error) {
	var none decimal.NullDecimal

	quoteText, err := extract.Default(extract.Base(
		extract.Cell("unitvalue"), extract.Text(div(1)),
	), "")(n)
	if err != nil {
		return none, none, err
	}

	unitPrice, err := extract.Optional(extract.Base(
		extract.Cell("unitvalue"),
		extract.Decimal(extract.Text(div(2)), extract.FrenchDecimal),
	))(n)
	if err != nil {
		return none, none, err
	}

	foreign, err := extract.Default(extract.Currency(extract.Const(quoteText)), "")(n)
	if err != nil {
		return none, none, err
	}
	if foreign != "" || strings.Contains(quoteText, "%") {
		return none, unitPrice, nil
	}

	unitValue, err := extract.Optional(
		extract.Decimal(extract.Const(quoteText), extract.FrenchDecimal),
	)(n)
	if err != nil {
		return none, none, err
	}
	return unitValue, unitPrice, nil
}

func extractInvestments(d *page.Document) ([]records.Investment, error) {
	rows, err := assemble.Table(d,
		"table#tabValorisation tbody tr:has(td)",
		"table#tabValorisation thead th",
		investmentColumns,
	)
	if err != nil {
		return nil, err
	}
	return assemble.Run(rows, investmentSchema)
}
