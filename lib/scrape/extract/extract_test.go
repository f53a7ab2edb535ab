package extract

import (
	"strings"
	"testing"
	"time"

	"finscrape/lib/scrape/scrapeerr"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func node(t *testing.T, markup string) Node {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return FromSelection(doc.Selection)
}

// cell wraps bare table-cell markup in a table so the parser keeps it.
func cell(t *testing.T, markup string) Node {
	t.Helper()
	return node(t, "<table><tr>"+markup+"</tr></table>")
}

func TestTextCleansWhitespace(t *testing.T) {
	n := node(t, `<div><span class="label">  CARD
	PAYMENT </span></div>`)

	value, err := Text("span.label")(n)
	require.NoError(t, err)
	require.Equal(t, "CARD PAYMENT", value)
}

func TestTextMissingLocatorFailsHard(t *testing.T) {
	n := node(t, `<div></div>`)

	_, err := Text("span.label")(n)
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
	require.Contains(t, err.Error(), "span.label")
}

func TestDefaultSubstitutesOnMiss(t *testing.T) {
	n := node(t, `<div></div>`)

	value, err := Default(Decimal(Text("td"), FrenchDecimal), decimal.Zero)(n)
	require.NoError(t, err)
	require.True(t, value.IsZero())
}

func TestAttr(t *testing.T) {
	n := node(t, `<div><a href="accounts/N0001?page=1">detail</a></div>`)

	value, err := Attr("a", "href")(n)
	require.NoError(t, err)
	require.Equal(t, "accounts/N0001?page=1", value)

	_, err = Attr("a", "title")(n)
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
}

func TestFrenchDecimal(t *testing.T) {
	n := cell(t, `<td>+4 242,00 €</td>`)

	value, err := Decimal(Text("td"), FrenchDecimal)(n)
	require.NoError(t, err)
	require.Equal(t, "4242", value.String())
}

func TestFrenchDecimalNegativeWithNbsp(t *testing.T) {
	n := cell(t, "<td>-1 249,90</td>")

	value, err := Decimal(Text("td"), FrenchDecimal)(n)
	require.NoError(t, err)
	require.Equal(t, "-1249.9", value.String())
}

func TestDotDecimal(t *testing.T) {
	n := cell(t, `<td>1,234.56 USD</td>`)

	value, err := Decimal(Text("td"), DotDecimal)(n)
	require.NoError(t, err)
	require.Equal(t, "1234.56", value.String())
}

func TestDecimalNoDigitsIsExtractionError(t *testing.T) {
	n := cell(t, `<td>N/D</td>`)

	_, err := Decimal(Text("td"), FrenchDecimal)(n)
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
}

func TestPercentYieldsFraction(t *testing.T) {
	n := cell(t, `<td>+5,26 %</td>`)

	value, err := Percent(Decimal(Text("td"), FrenchDecimal))(n)
	require.NoError(t, err)
	require.Equal(t, "0.0526", value.String())
}

func TestCurrency(t *testing.T) {
	for text, want := range map[string]string{
		"+42,00 €":  "EUR",
		"$1,000.00": "USD",
		"12.50 GBP": "GBP",
	} {
		n := cell(t, "<td>"+text+"</td>")
		value, err := Currency(Text("td"))(n)
		require.NoError(t, err)
		require.Equal(t, want, value)
	}

	_, err := Currency(Text("td"))(cell(t, `<td>42</td>`))
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
}

func TestDateDayFirst(t *testing.T) {
	n := cell(t, `<td>28/01/2021</td>`)

	value, err := Date(Text("td"), DateOptions{DayFirst: true})(n)
	require.NoError(t, err)
	require.Equal(t, time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC), value)
}

func TestDateFallsBackToOtherOrder(t *testing.T) {
	// day-first declared, but 01/28 only parses month-first
	n := cell(t, `<td>01/28/2021</td>`)

	value, err := Date(Text("td"), DateOptions{DayFirst: true})(n)
	require.NoError(t, err)
	require.Equal(t, time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC), value)
}

func TestOptional(t *testing.T) {
	n := cell(t, `<td class="diff">+25,00</td>`)

	value, err := Optional(Decimal(Text("td.diff"), FrenchDecimal))(n)
	require.NoError(t, err)
	require.True(t, value.Valid)
	require.Equal(t, "25", value.Decimal.String())

	missing, err := Optional(Decimal(Text("td.nope"), FrenchDecimal))(n)
	require.NoError(t, err)
	require.False(t, missing.Valid)
}

func TestRegexpCaptureGroup(t *testing.T) {
	n := cell(t, `<td><a>Account (N0001)</a></td>`)

	value, err := Regexp(Text("a"), `\(([0-9A-Z]*)\)`)(n)
	require.NoError(t, err)
	require.Equal(t, "N0001", value)

	_, err = Regexp(Text("a"), `\[(\w+)\]`)(n)
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
}

func TestReplace(t *testing.T) {
	n := cell(t, `<td>Vue consolidée</td>`)

	value, err := Replace(Text("td"), Replacement{Old: " ", New: ""})(n)
	require.NoError(t, err)
	require.Equal(t, "Vueconsolidée", value)
}

func TestFirst(t *testing.T) {
	n := node(t, `<div><span class="b">fallback</span></div>`)

	value, err := First(Text("span.a"), Text("span.b"), Const("last"))(n)
	require.NoError(t, err)
	require.Equal(t, "fallback", value)
}

func TestCellAddressesByColumnName(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td>AMUNDI ETF</td><td>10</td></tr></table>`))
	require.NoError(t, err)
	row := FromRow(doc.Find("tr"), map[string]int{"label": 0, "quantity": 1})

	value, err := CellText("label")(row)
	require.NoError(t, err)
	require.Equal(t, "AMUNDI ETF", value)

	_, err = Cell("valuation")(row)
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
}

func TestKeyWalksJSONPath(t *testing.T) {
	n := FromJSON(map[string]any{
		"accounts": []any{
			map[string]any{"id": "A1", "balance": 42.5},
		},
	})

	id, err := Key("accounts.0.id")(n)
	require.NoError(t, err)
	require.Equal(t, "A1", id)

	balance, err := Key("accounts.0.balance")(n)
	require.NoError(t, err)
	require.Equal(t, "42.5", balance)

	_, err = Key("accounts.0.currency")(n)
	require.ErrorIs(t, err, scrapeerr.ErrExtraction)
}

func TestOwnText(t *testing.T) {
	n := cell(t, `<td>893 827 <a>Compte titres</a></td>`)

	value, err := OwnText("td")(n)
	require.NoError(t, err)
	require.Equal(t, "893 827", value)
}
