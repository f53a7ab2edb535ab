package linebroker

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"finscrape/lib/records"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/telemetry"
	"finscrape/lib/testutil"

	"github.com/stretchr/testify/require"
)

const accountID = "12345678"

const messagePage = `<html><body>
<form name="leForm" action="valider" method="post">
<p class="bold">Information importante</p>
<input type="hidden" name="_tok" value="xyz">
<input type="checkbox" id="signature1" name="signatur1">
<label for="signature1">J'ai pris connaissance de cette information</label>
</form>
</body></html>`

const firstConnectionPage = `<html><body>
<p>Merci de prendre connaissance des conditions d'utilisation du service.</p>
</body></html>`

const picker = `<form class="choixCompte">
<select name="compte">
<option value="C1" selected>M X compte 12345678</option>
<option value="C2">M X compte 87654321</option>
</select>
</form>`

const historyTable = `<table summary="Historique operations">
<tr><th>Date</th><th>Valeur</th><th>Quantité</th><th>Montant net EUR</th><th>Opération</th></tr>
%s
</table>`

const historyRows = `
<tr><td>28/01/2021</td><td>AMUNDI ETF WORLD - FR0010315770</td><td>10</td><td>-425,00</td><td>ACHAT COMPTANT</td></tr>
<tr><td>29/01/2021</td><td>- FR0010315770</td><td>5</td><td>-212,50</td><td>ACHAT COMPTANT</td></tr>`

const emptyHistoryRow = `
<tr><td colspan="5">Aucune information disponible pour cette période</td></tr>`

const periodsSelect = `<select id="ListeDate">
<option value="20210131">Janvier 2021</option>
<option value="20201231">Décembre 2020</option>
</select>`

const portfolioPage = `<html><body>` + picker + `
<table>
<tr class="titreAvant"><td>Liquidités</td><td>1 000,00</td></tr>
</table>
<table summary="Contenu du portefeuille valorisé">
<thead><tr>
<th>Valeur</th><th>Quantité</th><th>Cours/VL</th><th>Prix moyen EUR</th>
<th>Valorisation EUR</th><th>+/- value latente EUR</th><th>% Actif</th>
</tr></thead>
<tbody>
<tr><td colspan="7">AMUNDI ETF WORLD - FR0010315770</td></tr>
<tr><td></td><td>10,00</td><td>42,50</td><td>40,00</td><td>425,00</td><td>+25,00</td><td>8,50</td></tr>
<tr><td colspan="7">SOLDE ESPECES</td></tr>
<tr><td></td><td>0,00</td><td></td><td></td><td>1 000,00</td><td></td><td></td></tr>
</tbody>
</table>
</body></html>`

type fixtureOptions struct {
	firstConnection bool
}

func newFixtureClient(t *testing.T, opts fixtureOptions) *Client {
	t.Helper()

	mux := http.NewServeMux()
	acked := func(r *http.Request) bool {
		cookie, err := r.Cookie("ack")
		return err == nil && cookie.Value == "yes"
	}

	mux.HandleFunc("/historique", func(w http.ResponseWriter, r *http.Request) {
		if opts.firstConnection {
			fmt.Fprint(w, firstConnectionPage)
			return
		}
		if !acked(r) {
			fmt.Fprint(w, messagePage)
			return
		}
		rows := historyRows
		if r.URL.Query().Get("ListeDate") == "20201231" {
			rows = emptyHistoryRow
		}
		fmt.Fprintf(w, `<html><body>%s%s`+historyTable+`</body></html>`,
			picker, periodsSelect, rows)
	})
	mux.HandleFunc("/valider", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("_tok") != "xyz" || r.FormValue("signatur1") != "on" {
			http.Error(w, "bad signature", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "ack", Value: "yes"})
		http.Redirect(w, r, "/historique", http.StatusFound)
	})
	mux.HandleFunc("/portefeuille", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, portfolioPage)
	})

	server := testutil.Serve(t, mux)
	client, err := NewClient(ClientOptions{BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return client
}

func TestPeriods(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:sources/linebroker")
	defer cleanup()

	client := newFixtureClient(t, fixtureOptions{})

	periods, err := client.Periods(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, []string{"20210131", "20201231"}, periods)
}

func TestHistoryLabelCache(t *testing.T) {
	client := newFixtureClient(t, fixtureOptions{})

	entries, err := client.History(context.Background(), accountID)
	require.NoError(t, err)
	// Two rows from the first period; the second period has no data.
	require.Len(t, entries, 2)

	require.Equal(t, "ACHAT COMPTANT", entries[0].Label)
	require.Equal(t, "-425", entries[0].Amount.String())
	require.Equal(t, "AMUNDI ETF WORLD", entries[0].Investment.Label)
	require.Equal(t, "FR0010315770", entries[0].Investment.Code)
	require.Equal(t, "10", entries[0].Investment.Quantity.Decimal.String())

	// The second row only names the code; its label comes from the first.
	require.Equal(t, "AMUNDI ETF WORLD", entries[1].Investment.Label)
	require.Equal(t, "5", entries[1].Investment.Quantity.Decimal.String())
}

func TestInvestments(t *testing.T) {
	client := newFixtureClient(t, fixtureOptions{})

	investments, err := client.Investments(context.Background(), accountID)
	require.NoError(t, err)
	// The zero-quantity cash pair is skipped.
	require.Len(t, investments, 1)

	inv := investments[0]
	require.Equal(t, "AMUNDI ETF WORLD", inv.Label)
	require.Equal(t, "FR0010315770", inv.Code)
	require.Equal(t, records.CodeTypeISIN, inv.CodeType)
	require.Equal(t, "10", inv.Quantity.Decimal.String())
	require.Equal(t, "42.5", inv.UnitValue.Decimal.String())
	require.Equal(t, "40", inv.UnitPrice.Decimal.String())
	require.Equal(t, "425", inv.Valuation.String())
	require.Equal(t, "25", inv.Diff.Decimal.String())
	require.Equal(t, "0.085", inv.PortfolioShare.Decimal.String())
}

func TestLiquidity(t *testing.T) {
	client := newFixtureClient(t, fixtureOptions{})

	liquidity, err := client.Liquidity(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, "Liquidités", liquidity.Label)
	require.Equal(t, "XX-Liquidity", liquidity.Code)
	require.Equal(t, "1000", liquidity.Valuation.String())
}

func TestFirstConnection(t *testing.T) {
	client := newFixtureClient(t, fixtureOptions{firstConnection: true})

	_, err := client.History(context.Background(), accountID)
	require.ErrorIs(t, err, scrapeerr.ErrActionNeeded)
	require.Contains(t, err.Error(), "prendre connaissance")
}
