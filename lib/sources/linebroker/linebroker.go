// Package linebroker scrapes the shared stock-market sub-site several French
// banks delegate their securities accounts to. Authentication is inherited
// from the parent bank's session cookies; this client only navigates.
package linebroker

import (
	"context"
	"fmt"
	"net/url"

	"finscrape/lib/fetch"
	"finscrape/lib/htmlutil"
	"finscrape/lib/records"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/scrape/session"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sources/linebroker")

const (
	KindFirstConnection page.Kind = "first_connection"
	KindMessage         page.Kind = "message"
	KindHistory         page.Kind = "history"
	KindInvestments     page.Kind = "investments"
	KindMain            page.Kind = "main"
)

func classifier() *page.Classifier {
	always := func(*page.Document) bool { return true }
	return &page.Classifier{
		Matchers: []page.Matcher{
			{
				// Shown once per user until the site's terms are
				// acknowledged; nothing can be scraped before that.
				Kind: KindFirstConnection,
				Match: func(d *page.Document) bool {
					return documentText(d, `p:contains("prendre connaissance")`) != ""
				},
				Logged: always,
				OnLoad: func(_ context.Context, p page.Page) error {
					return scrapeerr.ActionNeeded(
						documentText(p.Doc, `p:contains("prendre connaissance")`))
				},
			},
			{
				Kind: KindMessage,
				Match: func(d *page.Document) bool {
					return d.Has(`label[for="signature1"]`)
				},
				Logged: always,
			},
			{
				Kind: KindHistory,
				Match: func(d *page.Document) bool {
					return d.Has(`table[summary="Historique operations"]`)
				},
				Logged: always,
			},
			{
				Kind: KindInvestments,
				Match: func(d *page.Document) bool {
					return d.Has(`table[summary^="Contenu du portefeuille"]`)
				},
				Logged: always,
			},
			{
				Kind:   KindMain,
				Match:  func(d *page.Document) bool { return d.Has(`form.choixCompte`) },
				Logged: always,
			},
		},
	}
}

func documentText(d *page.Document, selector string) string {
	if d.HTML == nil {
		return ""
	}
	return htmlutil.CleanText(d.HTML.Find(selector).First().Text())
}

type ClientOptions struct {
	BaseURL string
	// Transport carries the parent bank's authenticated session. When
	// nil a fresh client is built, which only works against sources not
	// requiring a parent login.
	Transport *fetch.Client
}

type Client struct {
	driver *session.Driver
}

func NewClient(opts ClientOptions) (*Client, error) {
	transport := opts.Transport
	if transport == nil {
		var err error
		transport, err = fetch.NewClient(fetch.Options{
			BaseURL: opts.BaseURL,
			// the sub-site sits behind bot detection
			CloudflareBypass: true,
			TracerName:       "sources/linebroker/http",
		})
		if err != nil {
			return nil, err
		}
	}

	c := &Client{}
	c.driver = &session.Driver{
		Name:       "linebroker",
		Client:     transport,
		Classifier: classifier(),
		// No handlers: the parent bank authenticates. Reaching an
		// unknown page here means the inherited session is dead.
		Flow: session.LoginFlow{Start: "historique"},
	}
	return c, nil
}

// navigate fetches an endpoint and steps over the acknowledgeable message
// interstitial.
func (c *Client) navigate(ctx context.Context, endpoint string) (page.Page, error) {
	p, err := c.driver.Go(ctx, endpoint, nil)
	if err != nil {
		return page.Page{}, err
	}
	if p.Kind == KindMessage {
		p, err = c.acknowledgeMessage(ctx, p)
		if err != nil {
			return page.Page{}, err
		}
	}
	return p, nil
}

func (c *Client) acknowledgeMessage(ctx context.Context, p page.Page) (page.Page, error) {
	form := p.Doc.HTML.Find(`form[name="leForm"]`)
	action, _ := form.Attr("action")
	fields := map[string]string{"signatur1": "on"}
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		if name, ok := input.Attr("name"); ok {
			value, _ := input.Attr("value")
			fields[name] = value
		}
	})
	return c.driver.Submit(ctx, action, fields)
}

// selectPortfolio makes sure the account picker has the wanted account
// selected, switching with the picker form when it does not.
func (c *Client) selectPortfolio(ctx context.Context, p page.Page, endpoint, accountID string) (page.Page, error) {
	if onRightPortfolio(p.Doc, accountID) {
		return p, nil
	}

	value := ""
	p.Doc.HTML.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if !optionMatches(opt, accountID) {
			return true
		}
		value, _ = opt.Attr("value")
		return false
	})
	if value == "" {
		return page.Page{}, fmt.Errorf("account %q not present in portfolio picker", accountID)
	}

	next, err := c.driver.Submit(ctx, endpoint, map[string]string{"compte": value})
	if err != nil {
		return page.Page{}, err
	}
	if !onRightPortfolio(next.Doc, accountID) {
		return page.Page{}, fmt.Errorf("could not switch picker to account %q", accountID)
	}
	return next, nil
}

func onRightPortfolio(d *page.Document, accountID string) bool {
	if d.HTML == nil {
		return false
	}
	found := false
	d.HTML.Find("form.choixCompte option[selected]").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if optionMatches(opt, accountID) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Periods lists the statement period values offered on the history page,
// most recent first.
func (c *Client) Periods(ctx context.Context, accountID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Periods")
	defer span.End()

	p, err := c.navigate(ctx, "historique")
	if err != nil {
		return nil, err
	}
	p, err = c.selectPortfolio(ctx, p, "historique", accountID)
	if err != nil {
		return nil, err
	}
	return extractPeriods(p.Doc), nil
}

// History lists the operations of one securities account across every
// statement period offered.
func (c *Client) History(ctx context.Context, accountID string) ([]HistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	p, err := c.navigate(ctx, "historique")
	if err != nil {
		return nil, err
	}
	p, err = c.selectPortfolio(ctx, p, "historique", accountID)
	if err != nil {
		return nil, err
	}

	var out []HistoryEntry
	for _, period := range extractPeriods(p.Doc) {
		paged, err := c.driver.Go(ctx, "historique", url.Values{"ListeDate": {period}})
		if err != nil {
			return nil, err
		}
		if paged.Kind != KindHistory {
			return nil, fmt.Errorf("expected history page for period %q, got %q", period, paged.Kind)
		}
		entries, err := extractHistory(paged.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Investments lists the holdings of one securities account.
func (c *Client) Investments(ctx context.Context, accountID string) ([]records.Investment, error) {
	ctx, span := tracer.Start(ctx, "Investments")
	defer span.End()

	p, err := c.navigate(ctx, "portefeuille")
	if err != nil {
		return nil, err
	}
	p, err = c.selectPortfolio(ctx, p, "portefeuille", accountID)
	if err != nil {
		return nil, err
	}
	if p.Kind != KindInvestments {
		return nil, fmt.Errorf("expected portfolio page, got %q", p.Kind)
	}
	return extractInvestments(p.Doc)
}

// Liquidity reads the cash line of the portfolio page as a synthetic
// investment, for parent banks that do not expose it as its own account.
func (c *Client) Liquidity(ctx context.Context, accountID string) (records.Investment, error) {
	ctx, span := tracer.Start(ctx, "Liquidity")
	defer span.End()

	p, err := c.navigate(ctx, "portefeuille")
	if err != nil {
		return records.Investment{}, err
	}
	p, err = c.selectPortfolio(ctx, p, "portefeuille", accountID)
	if err != nil {
		return records.Investment{}, err
	}
	return extractLiquidity(p.Doc)
}
