// Package porbank scrapes a French retail bank whose market and PEA accounts
// live on a separate portfolio synthesis page. The synthesis entries carry
// the balances missing from the primary listing and are folded into it by id
// prefix.
package porbank

import (
	"context"
	"fmt"
	"strings"

	"finscrape/lib/fetch"
	"finscrape/lib/records"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/scrape/session"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sources/porbank")

const (
	KindLogin       page.Kind = "login"
	KindNotice      page.Kind = "notice"
	KindPortfolio   page.Kind = "portfolio"
	KindInvestments page.Kind = "investments"
)

const badPasswordMarker = "votre mot de passe est faux"

func loggedMarker(d *page.Document) bool {
	return d.Has(`div#e_identification_ok`)
}

func classifier() *page.Classifier {
	always := func(*page.Document) bool { return true }
	return &page.Classifier{
		Matchers: []page.Matcher{
			{
				// Commercial notice shown every half hour in the
				// middle of the session.
				Kind: KindNotice,
				Match: func(d *page.Document) bool {
					return d.Has(`form[action*="MsgCommerciaux"]`) &&
						d.Has(`input[id*="Valider"]`)
				},
				Logged: always,
			},
			{
				Kind:   KindLogin,
				Match:  func(d *page.Document) bool { return d.Has(`input[name="_cm_user"]`) || loggedMarker(d) },
				Logged: loggedMarker,
			},
			{
				Kind:   KindPortfolio,
				Match:  func(d *page.Document) bool { return d.Has(`table#tabSYNT`) },
				Logged: always,
			},
			{
				Kind:   KindInvestments,
				Match:  func(d *page.Document) bool { return d.Has(`table#tabValorisation`) },
				Logged: always,
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
		TracerName: "sources/porbank/http",
	})
	if err != nil {
		return nil, err
	}

	c := &Client{opts: opts}
	c.driver = &session.Driver{
		Name:       "porbank",
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
	if msg, failed := badPasswordMessage(p.Doc); failed {
		return page.Page{}, scrapeerr.BadCredentials(msg)
	}

	action := "login"
	if p.Doc.HTML != nil {
		if a, ok := p.Doc.HTML.Find(`form[name*="ident"]`).Attr("action"); ok && a != "" {
			action = a
		}
	}

	next, err := d.Submit(ctx, action, map[string]string{
		"_cm_user": c.opts.Login,
		"_cm_pwd":  c.opts.Password,
	})
	if err != nil {
		return page.Page{}, err
	}
	if msg, failed := badPasswordMessage(next.Doc); failed {
		return page.Page{}, scrapeerr.BadCredentials(msg)
	}
	return next, nil
}

func badPasswordMessage(d *page.Document) (string, bool) {
	if d.HTML == nil {
		return "", false
	}
	var msg string
	d.HTML.Find("div.err p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.Contains(p.Text(), badPasswordMarker) {
			msg = strings.TrimSpace(p.Text())
			return false
		}
		return true
	})
	return msg, msg != ""
}

// dismissNotice acknowledges the commercial interstitial when its "do not
// show again" checkbox is offered; without the checkbox the notice requires
// a manual acknowledgement on the website.
func (c *Client) dismissNotice(ctx context.Context, p page.Page) (page.Page, error) {
	message := ""
	if p.Doc.HTML != nil {
		message = strings.TrimSpace(p.Doc.HTML.Find("div#divMessage p").First().Text())
	}
	if !p.Doc.Has(`input[id*="chxOption"]`) {
		return page.Page{}, scrapeerr.ActionNeeded(message)
	}

	form := p.Doc.HTML.Find("form#frmMere")
	action, _ := form.Attr("action")
	fields := map[string]string{}
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok {
			return
		}
		value, _ := input.Attr("value")
		fields[name] = value
	})
	fields["chxOption"] = "on"

	return c.driver.Submit(ctx, action, fields)
}

// goPortfolio navigates to the synthesis page, stepping over the notice if
// it interposes.
func (c *Client) goPortfolio(ctx context.Context) (page.Page, error) {
	p, err := c.driver.Go(ctx, "por", nil)
	if err != nil {
		return page.Page{}, err
	}
	if p.Kind == KindNotice {
		p, err = c.dismissNotice(ctx, p)
		if err != nil {
			return page.Page{}, err
		}
	}
	if p.Kind != KindPortfolio {
		return page.Page{}, fmt.Errorf("expected portfolio page, got %q", p.Kind)
	}
	return p, nil
}

// Accounts lists the portfolio synthesis accounts.
func (c *Client) Accounts(ctx context.Context) ([]records.Account, error) {
	ctx, span := tracer.Start(ctx, "Accounts")
	defer span.End()

	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}
	p, err := c.goPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	return extractPortfolioAccounts(p.Doc)
}

// AddPortfolioAccounts folds the synthesis entries into accounts fetched
// from the primary listing, matching by id prefix.
func (c *Client) AddPortfolioAccounts(ctx context.Context, accounts []records.Account) ([]records.Account, error) {
	extra, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return records.MergeByIDPrefix(accounts, extra), nil
}

// Investments lists the holdings of one portfolio account, using the detail
// link captured on the synthesis page.
func (c *Client) Investments(ctx context.Context, account records.Account) ([]records.Investment, error) {
	ctx, span := tracer.Start(ctx, "Investments")
	defer span.End()

	if account.URL == "" {
		return nil, fmt.Errorf("account %q has no detail link", account.ID)
	}
	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}

	p, err := c.driver.Go(ctx, account.URL, nil)
	if err != nil {
		return nil, err
	}
	if p.Kind != KindInvestments {
		return nil, fmt.Errorf("expected investment detail page, got %q", p.Kind)
	}
	return extractInvestments(p.Doc)
}
