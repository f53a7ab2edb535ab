package demobank

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"finscrape/lib/records"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/telemetry"
	"finscrape/lib/testutil"
	"finscrape/lib/timezone"

	"github.com/stretchr/testify/require"
)

const loginForm = `<html><body>
<form action="login" method="post">
<input name="login"><input name="password">
</form>
%s
</body></html>`

const accountsPage = `<html><body>
<table><tbody>
<tr><td><a href="">Account (N0001)</a></td><td>+42,00 €</td></tr>
<tr><td><a href="">Account (N0002)</a></td><td>+4 242,00 €</td></tr>
</tbody></table>
</body></html>`

var historyPages = map[string]string{
	"1": `<html><body>
<table><tbody>
<tr><td>28/01/2021</td><td>VIREMENT SALAIRE</td><td>+4 242,00 €</td><td></td></tr>
<tr><td>29/01/2021</td><td>CARD PAYMENT</td><td></td><td>-30,00</td></tr>
</tbody></table>
<div class="pagination">Page 1/2</div>
</body></html>`,
	"2": `<html><body>
<table><tbody>
<tr><td>30/01/2021</td><td>TRANSFER</td><td>+10,50 €</td><td></td></tr>
</tbody></table>
<div class="pagination">Page 2/2</div>
</body></html>`,
}

func newFixtureClient(t *testing.T, badPassword bool) *Client {
	t.Helper()
	login, password := testutil.Credentials(t)

	mux := http.NewServeMux()
	authed := func(r *http.Request) bool {
		cookie, err := r.Cookie("session")
		return err == nil && cookie.Value == "ok"
	}
	requireAuth := func(w http.ResponseWriter, r *http.Request) bool {
		if authed(r) {
			return true
		}
		fmt.Fprintf(w, loginForm, "")
		return false
	}

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			fmt.Fprintf(w, loginForm, "")
			return
		}
		if r.FormValue("login") != login || r.FormValue("password") != password {
			fmt.Fprintf(w, loginForm, `<div class="error">Invalid login/password combination</div>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok"})
		http.Redirect(w, r, "/accounts", http.StatusFound)
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		fmt.Fprint(w, accountsPage)
	})
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		body, ok := historyPages[r.URL.Query().Get("page")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})

	server := testutil.Serve(t, mux)

	sent := password
	if badPassword {
		sent = "wrong-" + password
	}
	client, err := NewClient(ClientOptions{
		BaseURL:  server.URL + "/",
		Login:    login,
		Password: sent,
	})
	require.NoError(t, err)
	return client
}

func TestAccounts(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:sources/demobank")
	defer cleanup()

	client := newFixtureClient(t, false)

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	require.Equal(t, "N0001", accounts[0].ID)
	require.Equal(t, "Account (N0001)", accounts[0].Label)
	require.Equal(t, "42", accounts[0].Balance.String())
	require.Equal(t, "EUR", accounts[0].Currency)

	require.Equal(t, "N0002", accounts[1].ID)
	require.Equal(t, "4242", accounts[1].Balance.String())
}

func TestBadCredentials(t *testing.T) {
	client := newFixtureClient(t, true)

	_, err := client.Accounts(context.Background())
	require.ErrorIs(t, err, scrapeerr.ErrBadCredentials)
	require.Contains(t, err.Error(), "Invalid login/password")
}

func TestHistoryPagination(t *testing.T) {
	client := newFixtureClient(t, false)

	history, err := client.History(context.Background(), "N0001")
	require.NoError(t, err)
	require.Len(t, history, 3)

	require.Equal(t, time.Date(2021, 1, 28, 0, 0, 0, 0, timezone.Location), history[0].Date)
	require.Equal(t, "VIREMENT SALAIRE", history[0].Label)
	require.Equal(t, "4242", history[0].Amount.String())
	require.Equal(t, "-30", history[1].Amount.String())
	require.Equal(t, "10.5", history[2].Amount.String())
}

func TestHistoryStopsEarly(t *testing.T) {
	client := newFixtureClient(t, false)

	var seen int
	err := client.IterHistory(context.Background(), "N0001", func(_ records.Transaction) bool {
		seen++
		return seen < 1
	})
	require.NoError(t, err)
	require.Equal(t, 1, seen)
}

func TestBadCredentialsDoesNotRetryForever(t *testing.T) {
	client := newFixtureClient(t, true)

	_, err := client.History(context.Background(), "N0001")
	require.True(t, errors.Is(err, scrapeerr.ErrBadCredentials))
}
