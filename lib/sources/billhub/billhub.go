// Package billhub scrapes an online retailer's customer area for invoice
// documents. One subscription represents the customer account; bills hang
// off it with ids of the form "<subscription>_<invoice>".
package billhub

import (
	"context"
	"fmt"
	"strings"

	"finscrape/lib/fetch"
	"finscrape/lib/records"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/scrape/session"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sources/billhub")

const (
	KindLogin page.Kind = "login"
	KindBills page.Kind = "bills"
)

func classifier() *page.Classifier {
	return &page.Classifier{
		Matchers: []page.Matcher{
			{
				Kind:  KindLogin,
				Match: func(d *page.Document) bool { return d.Has(`form input[name="email"]`) },
			},
			{
				Kind:   KindBills,
				Match:  func(d *page.Document) bool { return d.Has(`table.invoices`) },
				Logged: func(d *page.Document) bool { return d.Has(`span.customer-number`) },
			},
		},
	}
}

type ClientOptions struct {
	BaseURL  string
	Email    string
	Password string
}

type Client struct {
	driver    *session.Driver
	transport *fetch.Client
	opts      ClientOptions
}

func NewClient(opts ClientOptions) (*Client, error) {
	transport, err := fetch.NewClient(fetch.Options{
		BaseURL:    opts.BaseURL,
		TracerName: "sources/billhub/http",
	})
	if err != nil {
		return nil, err
	}

	c := &Client{transport: transport, opts: opts}
	c.driver = &session.Driver{
		Name:       "billhub",
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
		"email":    c.opts.Email,
		"password": c.opts.Password,
	})
	if err != nil {
		return page.Page{}, err
	}
	if next.Kind == KindLogin {
		if msg := loginError(next.Doc); msg != "" {
			return page.Page{}, scrapeerr.BadCredentials(msg)
		}
	}
	return next, nil
}

func (c *Client) goBills(ctx context.Context) (page.Page, error) {
	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return page.Page{}, err
	}
	p, err := c.driver.Go(ctx, "account/invoices", nil)
	if err != nil {
		return page.Page{}, err
	}
	if p.Kind != KindBills {
		return page.Page{}, fmt.Errorf("expected invoices page, got %q", p.Kind)
	}
	return p, nil
}

// Subscriptions lists the customer accounts reachable with these
// credentials; the retailer exposes exactly one.
func (c *Client) Subscriptions(ctx context.Context) ([]records.Subscription, error) {
	ctx, span := tracer.Start(ctx, "Subscriptions")
	defer span.End()

	p, err := c.goBills(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := extractSubscription(p.Doc, c.opts.Email)
	if err != nil {
		return nil, err
	}
	return []records.Subscription{sub}, nil
}

// Bills lists the invoices of one subscription.
func (c *Client) Bills(ctx context.Context, subscriptionID string) ([]records.Bill, error) {
	ctx, span := tracer.Start(ctx, "Bills")
	defer span.End()

	p, err := c.goBills(ctx)
	if err != nil {
		return nil, err
	}
	return extractBills(p.Doc, subscriptionID)
}

// FindBill resolves a bill by its composite "<subscription>_<invoice>" id.
func (c *Client) FindBill(ctx context.Context, id string) (records.Bill, error) {
	split := strings.LastIndex(id, "_")
	if split <= 0 {
		return records.Bill{}, fmt.Errorf("bill id %q is not of the form <subscription>_<invoice>", id)
	}
	bills, err := c.Bills(ctx, id[:split])
	if err != nil {
		return records.Bill{}, err
	}
	for _, bill := range bills {
		if bill.ID == id {
			return bill, nil
		}
	}
	return records.Bill{}, fmt.Errorf("bill %q not found", id)
}

// Download fetches the invoice document itself.
func (c *Client) Download(ctx context.Context, bill records.Bill) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Download")
	defer span.End()

	if bill.URL == "" {
		return nil, fmt.Errorf("bill %q has no document link", bill.ID)
	}
	if err := c.driver.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}
	resp, err := c.transport.Go(ctx, bill.URL, nil)
	if err != nil {
		return nil, scrapeerr.Translate(err)
	}
	return resp.Body, nil
}
