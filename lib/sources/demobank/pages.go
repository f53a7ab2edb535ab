package demobank

import (
	"fmt"
	"regexp"
	"strconv"

	"finscrape/lib/records"
	"finscrape/lib/scrape/assemble"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"
	"finscrape/lib/timezone"

	"github.com/shopspring/decimal"
)

// invalidCredentialsMessage reads the login page's error banner, if any.
func invalidCredentialsMessage(d *page.Document) (string, bool) {
	if !d.Has("div.error") {
		return "", false
	}
	msg, err := extract.Text("div.error")(extract.FromSelection(d.HTML.Selection))
	if err != nil {
		return "", false
	}
	return msg, msg != ""
}

var accountSchema = assemble.Schema[records.Account]{
	Build: func(item assemble.Item) (records.Account, error) {
		id, err := extract.Regexp(extract.Text("td a"), `\(([0-9A-Z]*)\)`)(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		label, err := extract.Text("td a")(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		balance, err := extract.Decimal(
			extract.Text("td:nth-child(2)"), extract.FrenchDecimal,
		)(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		currency, err := extract.Currency(extract.Text("td:nth-child(2)"))(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		return records.Account{
			ID:       id,
			Label:    label,
			Balance:  balance,
			Currency: currency,
			Type:     records.AccountChecking,
		}, nil
	},
}

func extractAccounts(d *page.Document) ([]records.Account, error) {
	return assemble.Run(assemble.List(d, "table tbody tr"), accountSchema)
}

var transactionSchema = assemble.Schema[records.Transaction]{
	Build: func(item assemble.Item) (records.Transaction, error) {
		date, err := extract.Date(
			extract.Text("td:nth-child(1)"), extract.DateOptions{DayFirst: true, Location: timezone.Location},
		)(item.Node)
		if err != nil {
			return records.Transaction{}, err
		}
		label, err := extract.Text("td:nth-child(2)")(item.Node)
		if err != nil {
			return records.Transaction{}, err
		}
		// Each row carries either a credit or a debit cell; the absent
		// one counts as zero.
		credit, err := extract.Default(
			extract.Decimal(extract.Text("td:nth-child(3)"), extract.FrenchDecimal),
			decimal.Zero,
		)(item.Node)
		if err != nil {
			return records.Transaction{}, err
		}
		debit, err := extract.Default(
			extract.Decimal(extract.Text("td:nth-child(4)"), extract.FrenchDecimal),
			decimal.Zero,
		)(item.Node)
		if err != nil {
			return records.Transaction{}, err
		}
		return records.Transaction{
			Date:   date,
			Label:  label,
			Amount: credit.Add(debit),
		}, nil
	},
}

func extractHistory(p page.Page) ([]records.Transaction, error) {
	return assemble.Run(assemble.List(p.Doc, "table tbody tr"), transactionSchema)
}

var pageCounter = regexp.MustCompile(`Page (\d+)/(\d+)`)

// nextHistoryPage reads the "Page x/y" counter; equality of the two numbers
// means the last page was reached.
func nextHistoryPage(p page.Page) (string, error) {
	if p.Doc.HTML == nil {
		return "", nil
	}
	groups := pageCounter.FindStringSubmatch(p.Doc.HTML.Text())
	if groups == nil {
		return "", nil
	}
	current, _ := strconv.Atoi(groups[1])
	last, _ := strconv.Atoi(groups[2])
	if current >= last {
		return "", nil
	}

	next := *p.URL()
	query := next.Query()
	query.Set("page", fmt.Sprint(current+1))
	next.RawQuery = query.Encode()
	return next.String(), nil
}
