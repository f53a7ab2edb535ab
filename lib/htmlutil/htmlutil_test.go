package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	for input, want := range map[string]string{
		"  CARD\n\tPAYMENT ":      "CARD PAYMENT",
		"VIREMENT\nSALAIRE":       "VIREMENT SALAIRE",
		"-1 249,90":          "-1249,90",
		"\t +4 242,00 €": "+4 242,00€",
		"":                        "",
	} {
		require.Equal(t, want, CleanText(input))
	}
}

func TestOwnTextSkipsNestedElements(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td>893 827 <a>Compte titres</a></td></tr></table>`))
	require.NoError(t, err)

	require.Equal(t, "893 827", OwnText(doc.Find("td")))
}

func TestHeaderIndex(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><thead><tr><th> Valeur </th><th>Quantité</th></tr></thead></table>`))
	require.NoError(t, err)

	index := HeaderIndex(doc.Find("thead th"))
	require.Equal(t, map[string]int{"Valeur": 0, "Quantité": 1}, index)
}
