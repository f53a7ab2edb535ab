// Package demobankapi scrapes the v2 demo bank: a json API with a token
// session established by posting credentials to login.json.
package demobankapi

import (
	"context"
	"fmt"
	"regexp"

	"finscrape/lib/fetch"
	"finscrape/lib/records"
	"finscrape/lib/scrape/assemble"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/session"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sources/demobankapi")

const (
	KindLogin    page.Kind = "login"
	KindAccounts page.Kind = "accounts"
)

func classifier() *page.Classifier {
	return &page.Classifier{
		Matchers: []page.Matcher{
			{
				Kind: KindLogin,
				URL:  regexp.MustCompile(`login\.json`),
			},
			{
				Kind:   KindAccounts,
				URL:    regexp.MustCompile(`accounts\.json`),
				Match:  func(d *page.Document) bool { return d.JSON != nil },
				Logged: func(d *page.Document) bool { return d.JSON != nil },
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
		TracerName: "sources/demobankapi/http",
	})
	if err != nil {
		return nil, err
	}

	c := &Client{opts: opts}
	c.driver = &session.Driver{
		Name:       "demobankapi",
		Client:     transport,
		Classifier: classifier(),
		Flow: session.LoginFlow{
			Start: "login.json",
			Handlers: map[page.Kind]session.StepFunc{
				KindLogin: c.submitCredentials,
			},
		},
	}
	return c, nil
}

// submitCredentials posts the credential form; the transport maps a 401
// response to a bad-credentials failure.
func (c *Client) submitCredentials(ctx context.Context, d *session.Driver, _ page.Page) (page.Page, error) {
	if _, err := d.Submit(ctx, "login.json", map[string]string{
		"login":    c.opts.Login,
		"password": c.opts.Password,
	}); err != nil {
		return page.Page{}, err
	}
	// The session cookie is now held; the accounts endpoint doubles as
	// the logged probe.
	return d.Go(ctx, "accounts.json", nil)
}

var accountSchema = assemble.Schema[records.Account]{
	Build: func(item assemble.Item) (records.Account, error) {
		id, err := extract.Key("id")(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		label, err := extract.Key("label")(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		balance, err := extract.Decimal(extract.Key("balance"), extract.DotDecimal)(item.Node)
		if err != nil {
			return records.Account{}, err
		}
		currency, err := extract.Default(
			extract.Currency(extract.Key("currency")), "EUR",
		)(item.Node)
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

// Accounts lists the user's accounts from the json payload.
func (c *Client) Accounts(ctx context.Context) ([]records.Account, error) {
	ctx, span := tracer.Start(ctx, "Accounts")
	defer span.End()

	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}

	p, err := c.driver.Go(ctx, "accounts.json", nil)
	if err != nil {
		return nil, err
	}
	if p.Kind != KindAccounts {
		return nil, fmt.Errorf("expected accounts payload, got %q", p.Kind)
	}
	nodes, err := assemble.Dict(p.Doc, "accounts")
	if err != nil {
		return nil, err
	}
	return assemble.Run(nodes, accountSchema)
}
