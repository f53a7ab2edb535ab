// Package session drives the ordered page transitions needed to reach an
// authenticated state and each data endpoint. One driver serves one session
// with one source: strictly sequential, one in-flight request at a time.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"finscrape/lib/fetch"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/scrapeerr"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrape/session")

// Transport issues requests on the driver's behalf. fetch.Client implements
// it; engine-rendered sources substitute their own.
type Transport interface {
	Go(ctx context.Context, endpoint string, params url.Values) (*fetch.Response, error)
	Submit(ctx context.Context, endpoint string, form map[string]string) (*fetch.Response, error)
}

// StepFunc handles one login step: invoke the page's kind-specific
// submission and return the re-classified result.
type StepFunc func(ctx context.Context, d *Driver, p page.Page) (page.Page, error)

// LoginFlow is the directed step sequence of one source's login. Branching
// is driven by the kind observed after each submission, never by a fixed
// index, so optional interstitial or enrollment pages fall out naturally.
type LoginFlow struct {
	// Start is the endpoint fetched to begin the flow.
	Start string
	// Handlers maps each page kind the flow can encounter to its step.
	Handlers map[page.Kind]StepFunc
	// MaxSteps bounds runaway loops from unexpected page kinds.
	// Defaults to 12.
	MaxSteps int
}

type Driver struct {
	Name       string
	Client     Transport
	Classifier *page.Classifier
	Flow       LoginFlow

	current page.Page
}

// Current returns the last classified page.
func (d *Driver) Current() page.Page {
	return d.current
}

// Logged reports the authentication status derived from the current page's
// content. There is no separate flag to drift out of sync.
func (d *Driver) Logged() bool {
	return d.current.Logged()
}

// Go fetches an endpoint and classifies the result.
func (d *Driver) Go(ctx context.Context, endpoint string, params url.Values) (page.Page, error) {
	resp, err := d.Client.Go(ctx, endpoint, params)
	if err != nil {
		return page.Page{}, scrapeerr.Translate(err)
	}
	p, err := d.Classifier.Classify(ctx, resp)
	if err != nil {
		return page.Page{}, err
	}
	d.current = p
	return p, nil
}

// Submit posts a form and classifies the result.
func (d *Driver) Submit(ctx context.Context, endpoint string, form map[string]string) (page.Page, error) {
	resp, err := d.Client.Submit(ctx, endpoint, form)
	if err != nil {
		return page.Page{}, scrapeerr.Translate(err)
	}
	p, err := d.Classifier.Classify(ctx, resp)
	if err != nil {
		return page.Page{}, err
	}
	d.current = p
	return p, nil
}

// SetCurrent records a page classified outside the driver's own transport,
// e.g. one rendered by a browser-automation engine.
func (d *Driver) SetCurrent(p page.Page) {
	d.current = p
}

// EnsureLoggedIn walks the login flow until a logged page is reached. It is
// the declared precondition of every data-fetching operation.
func (d *Driver) EnsureLoggedIn(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "EnsureLoggedIn")
	defer span.End()

	if d.current.Logged() {
		return nil
	}

	p, err := d.Go(ctx, d.Flow.Start, nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login start page")
		return err
	}

	maxSteps := d.Flow.MaxSteps
	if maxSteps == 0 {
		maxSteps = 12
	}

	for step := 0; step < maxSteps; step++ {
		if p.Logged() {
			slog.DebugContext(ctx, "login converged",
				"source", d.Name, "kind", p.Kind, "steps", step)
			return nil
		}

		handler, ok := d.Flow.Handlers[p.Kind]
		if !ok {
			span.SetStatus(codes.Error, "page kind without login handler")
			return fmt.Errorf(
				"%w: reached page kind %q with no login handler",
				scrapeerr.ErrLoginLoop, p.Kind,
			)
		}

		slog.DebugContext(ctx, "login step",
			"source", d.Name, "kind", p.Kind, "step", step)

		p, err = handler(ctx, d, p)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	span.SetStatus(codes.Error, scrapeerr.ErrLoginLoop.Error())
	return fmt.Errorf("%w after %d steps", scrapeerr.ErrLoginLoop, maxSteps)
}
