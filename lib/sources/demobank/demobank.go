// Package demobank scrapes the v1 demo bank: a plain HTML site with a login
// form, an accounts table, and a paginated history table per account.
package demobank

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"finscrape/lib/fetch"
	"finscrape/lib/records"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/scrape/session"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sources/demobank")

const (
	KindLogin    page.Kind = "login"
	KindHistory  page.Kind = "history"
	KindAccounts page.Kind = "accounts"
)

var historyURL = regexp.MustCompile(`accounts/[^?]+\?`)

func notOnLoginForm(d *page.Document) bool {
	return !d.Has(`form input[name="login"]`)
}

func classifier() *page.Classifier {
	return &page.Classifier{
		Matchers: []page.Matcher{
			{
				Kind:  KindLogin,
				Match: func(d *page.Document) bool { return d.Has(`form input[name="login"]`) },
			},
			{
				Kind:   KindHistory,
				URL:    historyURL,
				Match:  func(d *page.Document) bool { return d.Has("table") },
				Logged: notOnLoginForm,
			},
			{
				Kind:   KindAccounts,
				Match:  func(d *page.Document) bool { return d.Has("table") },
				Logged: notOnLoginForm,
			},
		},
	}
}

type ClientOptions struct {
	BaseURL  string
	Login    string
	Password string
}

type Client struct {
	driver *session.Driver
	opts   ClientOptions
}

func NewClient(opts ClientOptions) (*Client, error) {
	transport, err := fetch.NewClient(fetch.Options{
		BaseURL:    opts.BaseURL,
		TracerName: "sources/demobank/http",
	})
	if err != nil {
		return nil, err
	}

	c := &Client{opts: opts}
	c.driver = &session.Driver{
		Name:       "demobank",
		Client:     transport,
		Classifier: classifier(),
		Flow: session.LoginFlow{
			Start: "login",
			Handlers: map[page.Kind]session.StepFunc{
				KindLogin: c.submitCredentials,
			},
		},
	}
	return c, nil
}

func (c *Client) submitCredentials(ctx context.Context, d *session.Driver, p page.Page) (page.Page, error) {
	action := "login"
	if p.Doc.HTML != nil {
		if a, ok := p.Doc.HTML.Find("form").Attr("action"); ok && a != "" {
			action = a
		}
	}

	next, err := d.Submit(ctx, action, map[string]string{
		"login":    c.opts.Login,
		"password": c.opts.Password,
	})
	if err != nil {
		return page.Page{}, err
	}

	if next.Kind == KindLogin {
		if msg, failed := invalidCredentialsMessage(next.Doc); failed {
			return page.Page{}, scrapeerr.BadCredentials(msg)
		}
	}
	return next, nil
}

// Accounts lists the user's accounts.
func (c *Client) Accounts(ctx context.Context) ([]records.Account, error) {
	ctx, span := tracer.Start(ctx, "Accounts")
	defer span.End()

	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}

	p, err := c.driver.Go(ctx, "accounts", nil)
	if err != nil {
		return nil, err
	}
	if p.Kind != KindAccounts {
		return nil, fmt.Errorf("expected accounts page, got %q", p.Kind)
	}
	return extractAccounts(p.Doc)
}

// IterHistory walks the paginated transaction history of one account,
// yielding lazily until exhaustion or until yield returns false.
func (c *Client) IterHistory(ctx context.Context, accountID string, yield func(records.Transaction) bool) error {
	ctx, span := tracer.Start(ctx, "IterHistory")
	defer span.End()

	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	p, err := c.driver.Go(ctx,
		fmt.Sprintf("accounts/%s", url.PathEscape(accountID)),
		url.Values{"page": {"1"}},
	)
	if err != nil {
		return err
	}
	return session.Paginate(ctx, c.driver, p, extractHistory, nextHistoryPage, yield)
}

// History materializes the full history of one account.
func (c *Client) History(ctx context.Context, accountID string) ([]records.Transaction, error) {
	var out []records.Transaction
	err := c.IterHistory(ctx, accountID, func(tx records.Transaction) bool {
		out = append(out, tx)
		return true
	})
	return out, err
}
