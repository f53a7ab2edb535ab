// Package page classifies fetched responses into named page kinds. A page's
// "logged" predicate is a pure function of the document content, never
// separately tracked state, so classification is repeated after every
// navigation step.
package page

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"finscrape/lib/fetch"
	"finscrape/lib/scrape/scrapeerr"

	"github.com/PuerkitoBio/goquery"
)

// Document is the structured, read-only view over one Response. Raw is
// always the decoded text; HTML and JSON are present when the body parses as
// markup or json respectively.
type Document struct {
	URL  *url.URL
	Raw  string
	HTML *goquery.Document
	JSON any
}

// Parse derives a Document from a Response, building every view the body
// supports.
func Parse(resp *fetch.Response) (*Document, error) {
	doc := &Document{
		URL: resp.URL,
		Raw: resp.Text(),
	}

	if resp.IsJSON() {
		var decoded any
		if err := json.Unmarshal([]byte(doc.Raw), &decoded); err == nil {
			doc.JSON = decoded
		}
	}

	if strings.Contains(doc.Raw, "<") {
		html, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Raw))
		if err == nil {
			doc.HTML = html
		}
	}

	return doc, nil
}

// FromHTMLString builds a Document from markup obtained outside the HTTP
// transport, e.g. serialized out of a browser-automation engine.
func FromHTMLString(rawURL, markup string) (*Document, error) {
	link, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	html, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &Document{
		URL:  link,
		Raw:  markup,
		HTML: html,
	}, nil
}

// Has reports whether the document's markup contains a match for the
// selector. The usual building block for kind and logged predicates.
func (d *Document) Has(selector string) bool {
	if d.HTML == nil {
		return false
	}
	return len(d.HTML.Find(selector).Nodes) > 0
}

// Kind names the classified role of a document.
type Kind string

// Matcher binds a kind to its classification predicate. Matchers are
// evaluated in declared order and the first full match wins.
type Matcher struct {
	Kind Kind
	// URL restricts the matcher to responses whose final URL matches.
	URL *regexp.Regexp
	// Match is the content predicate; nil means any content.
	Match func(d *Document) bool
	// Logged is the authentication predicate for this kind; nil means
	// not authenticated.
	Logged func(d *Document) bool
	// OnLoad runs once per classification, for kind-specific side
	// effects in the rendering environment.
	OnLoad func(ctx context.Context, p Page) error
}

func (m *Matcher) matches(d *Document) bool {
	if m.URL != nil && !m.URL.MatchString(d.URL.String()) {
		return false
	}
	if m.Match != nil && !m.Match(d) {
		return false
	}
	return true
}

// Page is a classified document.
type Page struct {
	Kind Kind
	Doc  *Document

	matcher *Matcher
}

func (p Page) Logged() bool {
	if p.matcher == nil || p.matcher.Logged == nil {
		return false
	}
	return p.matcher.Logged(p.Doc)
}

func (p Page) URL() *url.URL {
	return p.Doc.URL
}

// Classifier is the declared, ordered matcher list of one source.
type Classifier struct {
	Matchers []Matcher
}

// Classify parses a response and resolves its kind. A document matching no
// matcher is a classification failure: the caller cannot safely proceed
// without knowing what it is looking at.
func (c *Classifier) Classify(ctx context.Context, resp *fetch.Response) (Page, error) {
	doc, err := Parse(resp)
	if err != nil {
		return Page{}, err
	}
	return c.ClassifyDoc(ctx, doc)
}

func (c *Classifier) ClassifyDoc(ctx context.Context, doc *Document) (Page, error) {
	for i := range c.Matchers {
		m := &c.Matchers[i]
		if !m.matches(doc) {
			continue
		}
		p := Page{Kind: m.Kind, Doc: doc, matcher: m}
		if m.OnLoad != nil {
			if err := m.OnLoad(ctx, p); err != nil {
				return Page{}, err
			}
		}
		return p, nil
	}

	snippet := doc.Raw
	if len(snippet) > 120 {
		snippet = snippet[:120]
	}
	return Page{}, fmt.Errorf(
		"%w: %s (%q)",
		scrapeerr.ErrUnknownPage, doc.URL, snippet,
	)
}
