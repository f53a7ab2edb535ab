package brokerdirect

import (
	"fmt"
	"strings"

	"finscrape/lib/records"
	"finscrape/lib/scrape/assemble"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"
	"finscrape/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

func accountType(label string) records.AccountType {
	switch {
	case textutil.MatchName(label, []string{"comptetitre"}):
		return records.AccountMarket
	case textutil.MatchName(label, []string{"pea"}):
		return records.AccountPEA
	default:
		return records.AccountUnknown
	}
}

// Picker options read "NUMBER LABEL"; the option value is the site's own
// selector token, carried on the record for later navigation.
var accountSchema = assemble.Schema[records.Account]{
	Build: func(item assemble.Item) (records.Account, error) {
		id, err := extract.Regexp(extract.Text("."), `^(\w+)`)(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		label, err := extract.Regexp(extract.Text("."), `^\w+ (.*)`)(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		selectValue, err := extract.Attr(".", "value")(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		return records.Account{
			ID:       id,
			Label:    label,
			Currency: "EUR",
			Type:     accountType(label),
			URL:      selectValue,
		}, nil
	},
}

func extractAccounts(d *page.Document) ([]records.Account, error) {
	return assemble.Run(assemble.List(d, "select#nc option"), accountSchema)
}

func extractTotalBalance(d *page.Document) (decimal.Decimal, error) {
	row := d.HTML.Find(`table[class*="compteInventaire"] tr`).FilterFunction(
		func(_ int, sel *goquery.Selection) bool {
			return sel.Find("td b").First().Text() == "TOTAL"
		},
	).First()
	return extract.Decimal(
		extract.Text("td:nth-child(2)"), extract.FrenchDecimal,
	)(extract.FromSelection(row))
}

// The portfolio endpoint serializes holdings as "message=" followed by
// pipe-separated pairs, every odd element a literal "1", every even element
// a hash-separated field list.
func parseInvestBlob(raw string) ([]records.Investment, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "message=") {
		return nil, fmt.Errorf("portfolio blob does not start with message=")
	}

	parts := strings.Split(raw, "|")[1:]
	for i := 1; i < len(parts); i += 2 {
		if parts[i] != "1" {
			return nil, fmt.Errorf("unexpected blob separator %q at %d", parts[i], i)
		}
	}
	var lines []string
	for i := 0; i < len(parts); i += 2 {
		lines = append(lines, parts[i])
	}

	return assemble.Run(assemble.RawItems(lines), investSchema)
}

func blobField(index int) extract.Rule[string] {
	return extract.Map(extract.RawText(), func(raw string) (string, error) {
		fields := strings.Split(raw, "#")
		if index >= len(fields) {
			return "", &extract.FieldError{
				Locator: fmt.Sprintf("field %d", index),
				Reason:  fmt.Sprintf("blob line has only %d fields", len(fields)),
			}
		}
		return fields[index], nil
	})
}

func blobDecimal(index int) extract.Rule[decimal.Decimal] {
	return extract.Decimal(blobField(index), extract.FrenchDecimal)
}

var investSchema = assemble.Schema[records.Investment]{
	Build: func(item assemble.Item) (records.Investment, error) {
		label, err := blobField(0)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		quantity, err := blobDecimal(2)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		unitPrice, err := blobDecimal(3)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		unitValue, err := blobDecimal(4)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		valuation, err := blobDecimal(5)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		diff, err := blobDecimal(6)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		diffRatio, err := extract.Percent(blobDecimal(7))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		share, err := extract.Percent(blobDecimal(9))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}

		return records.Investment{
			Label:          label,
			Quantity:       decimal.NullDecimal{Decimal: quantity, Valid: true},
			UnitPrice:      decimal.NullDecimal{Decimal: unitPrice, Valid: true},
			UnitValue:      decimal.NullDecimal{Decimal: unitValue, Valid: true},
			Valuation:      valuation,
			Diff:           decimal.NullDecimal{Decimal: diff, Valid: true},
			DiffRatio:      decimal.NullDecimal{Decimal: diffRatio, Valid: true},
			PortfolioShare: decimal.NullDecimal{Decimal: share, Valid: true},
		}, nil
	},
}

// parseLiquidity reads the cash position from the blob's brace-separated
// trailer.
func parseLiquidity(raw string) (records.Investment, error) {
	parts := strings.Split(raw, "{")
	if len(parts) < 4 {
		return records.Investment{}, fmt.Errorf("portfolio blob has no liquidity section")
	}
	amount, err := extract.Decimal(
		extract.Const(parts[3]), extract.FrenchDecimal,
	)(extract.Node{})
	if err != nil {
		return records.Investment{}, err
	}
	return records.NewLiquidity(amount), nil
}
