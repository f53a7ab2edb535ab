package linebroker

import (
	"regexp"
	"strings"

	"finscrape/lib/htmlutil"
	"finscrape/lib/records"
	"finscrape/lib/scrape/assemble"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"
	"finscrape/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// HistoryEntry is one operation of a securities account together with the
// security it moved.
type HistoryEntry struct {
	records.Transaction
	Investment records.Investment
}

func optionMatches(opt *goquery.Selection, accountID string) bool {
	return strings.Contains(htmlutil.CleanText(opt.Text()), accountID)
}

func extractPeriods(d *page.Document) []string {
	var periods []string
	if d.HTML == nil {
		return periods
	}
	d.HTML.Find(`select#ListeDate option`).Each(func(_ int, opt *goquery.Selection) {
		if value, ok := opt.Attr("value"); ok {
			periods = append(periods, value)
		}
	})
	return periods
}

var historyColumns = map[string]string{
	"date":     `^Date$`,
	"name":     `^Valeur$`,
	"quantity": `^Quantité$`,
	"amount":   `^Montant net EUR$`,
	"label":    `^Opération$`,
}

// A security cell reads "LABEL - CODE"; the label part is sometimes absent
// and recovered from an earlier row naming the same code.
var securityName = regexp.MustCompile(`(?:(.*) )?- ([^-]+)$`)

var historySchema = assemble.Schema[HistoryEntry]{
	Condition: func(item assemble.Item) bool {
		text, err := extract.Text("td")(item.Node)
		return err == nil && !strings.HasPrefix(text, "Aucune information disponible")
	},
	Build: func(item assemble.Item) (HistoryEntry, error) {
		date, err := extract.Date(
			extract.CellText("date"), extract.DateOptions{DayFirst: true, Location: timezone.Location},
		)(item.Node)
		if err != nil {
			return HistoryEntry{}, err
		}
		label, err := extract.CellText("label")(item.Node)
		if err != nil {
			return HistoryEntry{}, err
		}
		amount, err := extract.Decimal(
			extract.CellText("amount"), extract.FrenchDecimal,
		)(item.Node)
		if err != nil {
			return HistoryEntry{}, err
		}
		quantity, err := extract.Decimal(
			extract.CellText("quantity"), extract.FrenchDecimal,
		)(item.Node)
		if err != nil {
			return HistoryEntry{}, err
		}

		name, err := extract.Regexp(extract.CellText("name"), securityName.String())(item.Node)
		code, codeErr := extract.Map(
			extract.CellText("name"),
			func(text string) (string, error) {
				groups := securityName.FindStringSubmatch(text)
				if groups == nil {
					return "", &extract.FieldError{Locator: "name", Reason: "no security code"}
				}
				return groups[2], nil
			},
		)(item.Node)
		if codeErr != nil {
			return HistoryEntry{}, codeErr
		}
		if err != nil {
			name = ""
		}

		// Cross-row label cache: later rows frequently omit the
		// security label and carry only its code.
		if cached, ok := item.Pass.Shared[code]; name == "" && ok {
			name = cached
		} else if name != "" {
			item.Pass.Shared[code] = name
		} else {
			name = code
		}

		return HistoryEntry{
			Transaction: records.Transaction{
				Date:   date,
				Label:  label,
				Amount: amount,
			},
			Investment: records.Investment{
				Label:    name,
				Code:     code,
				CodeType: records.CodeTypeISIN,
				Quantity: decimal.NullDecimal{Decimal: quantity, Valid: true},
			},
		}, nil
	},
}

func extractHistory(d *page.Document) ([]HistoryEntry, error) {
	rows, err := assemble.Table(d,
		`table[summary="Historique operations"] tr:has(td)`,
		`table[summary="Historique operations"] tr th`,
		historyColumns,
	)
	if err != nil {
		return nil, err
	}
	return assemble.Run(rows, historySchema)
}

var investmentColumns = map[string]string{
	"quantity":        `^Quantité$`,
	"valuation":       `^Valorisation EUR$`,
	"unitvalue":       `^Cours/VL$`,
	"unitprice":       `^Prix moyen EUR$`,
	"portfolio_share": `^% Actif$`,
	"diff":            `^\+/- value latente EUR$`,
}

var titleRowName = regexp.MustCompile(`(.*)- ([^\s]*)`)

// Portfolio rows come in pairs: a title row naming "LABEL - CODE" followed
// by the figures row. Title rows fail the quantity condition and figure rows
// reach back to their preceding sibling for the security identity.
var investmentSchema = assemble.Schema[records.Investment]{
	Condition: func(item assemble.Item) bool {
		quantity, err := extract.Decimal(
			extract.CellText("quantity"), extract.FrenchDecimal,
		)(item.Node)
		return err == nil && quantity.IsPositive()
	},
	Build: func(item assemble.Item) (records.Investment, error) {
		title := htmlutil.CleanText(item.Node.Sel.PrevFiltered("tr").Find("td").First().Text())
		label := ""
		code := ""
		if groups := titleRowName.FindStringSubmatch(title); groups != nil {
			label = strings.TrimSpace(groups[1])
			code = groups[2]
		}
		if !records.IsISIN(code) {
			code = ""
		}

		quantity, err := extract.Optional(extract.Decimal(
			extract.CellText("quantity"), extract.FrenchDecimal,
		))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		unitValue, err := extract.Optional(extract.Decimal(
			extract.CellText("unitvalue"), extract.FrenchDecimal,
		))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		unitPrice, err := extract.Optional(extract.Decimal(
			extract.CellText("unitprice"), extract.FrenchDecimal,
		))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		valuation, err := extract.Decimal(
			extract.CellText("valuation"), extract.FrenchDecimal,
		)(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		share, err := extract.Optional(extract.Percent(extract.Decimal(
			extract.CellText("portfolio_share"), extract.FrenchDecimal,
		)))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}
		diff, err := extract.Optional(extract.Decimal(
			extract.CellText("diff"), extract.FrenchDecimal,
		))(item.Node)
		if err != nil {
			return records.Investment{}, err
		}

		return records.Investment{
			Label:          label,
			Code:           code,
			CodeType:       records.CodeTypeFor(code),
			Quantity:       quantity,
			UnitValue:      unitValue,
			UnitPrice:      unitPrice,
			Valuation:      valuation,
			Diff:           diff,
			PortfolioShare: share,
		}, nil
	},
}

func extractInvestments(d *page.Document) ([]records.Investment, error) {
	rows, err := assemble.Table(d,
		`table[summary^="Contenu du portefeuille"] tbody tr`,
		`table[summary^="Contenu du portefeuille"] thead th`,
		investmentColumns,
	)
	if err != nil {
		return nil, err
	}
	return assemble.Run(rows, investmentSchema)
}

// extractLiquidity reads the cash line preceding the holdings.
func extractLiquidity(d *page.Document) (records.Investment, error) {
	cell := d.HTML.Find(`tr.titreAvant td:contains("Liquidit")`).First().Next()
	amount, err := extract.Decimal(
		extract.Const(htmlutil.CleanText(cell.Text())), extract.FrenchDecimal,
	)(extract.Node{})
	if err != nil {
		return records.Investment{}, err
	}
	return records.NewLiquidity(amount), nil
}
