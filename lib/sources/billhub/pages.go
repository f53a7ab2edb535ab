package billhub

import (
	"finscrape/lib/records"
	"finscrape/lib/scrape/assemble"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"
	"finscrape/lib/timezone"
)

func loginError(d *page.Document) string {
	msg, err := extract.Default(extract.Text("div.error"), "")(
		extract.FromSelection(d.HTML.Selection))
	if err != nil {
		return ""
	}
	return msg
}

func extractSubscription(d *page.Document, email string) (records.Subscription, error) {
	number, err := extract.Text("span.customer-number")(
		extract.FromSelection(d.HTML.Selection))
	if err != nil {
		return records.Subscription{}, err
	}
	return records.Subscription{ID: number, Label: email}, nil
}

var billColumns = map[string]string{
	"number": `^Facture`,
	"date":   `^Date`,
	"price":  `^Montant`,
}

func billSchema(subscriptionID string) assemble.Schema[records.Bill] {
	return assemble.Schema[records.Bill]{
		Build: func(item assemble.Item) (records.Bill, error) {
			number, err := extract.CellText("number")(item.Node)
			if err != nil {
				return records.Bill{}, err
			}
			date, err := extract.Date(
				extract.CellText("date"), extract.DateOptions{DayFirst: true, Location: timezone.Location},
			)(item.Node)
			if err != nil {
				return records.Bill{}, err
			}
			price, err := extract.Decimal(
				extract.CellText("price"), extract.FrenchDecimal,
			)(item.Node)
			if err != nil {
				return records.Bill{}, err
			}
			currency, err := extract.Default(
				extract.Currency(extract.CellText("price")), "EUR",
			)(item.Node)
			if err != nil {
				return records.Bill{}, err
			}
			link, err := extract.Default(extract.Attr("a", "href"), "")(item.Node)
			if err != nil {
				return records.Bill{}, err
			}

			return records.Bill{
				ID:             subscriptionID + "_" + number,
				SubscriptionID: subscriptionID,
				Date:           date,
				Price:          price,
				Currency:       currency,
				URL:            link,
			}, nil
		},
	}
}

func extractBills(d *page.Document, subscriptionID string) ([]records.Bill, error) {
	rows, err := assemble.Table(d,
		"table.invoices tbody tr",
		"table.invoices thead th",
		billColumns,
	)
	if err != nil {
		return nil, err
	}
	return assemble.Run(rows, billSchema(subscriptionID))
}
