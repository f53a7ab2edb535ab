package browserauto

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

type RodOptions struct {
	Headless bool
	// Stealth applies the anti-bot-detection patches before navigation.
	Stealth bool
}

// RodEngine implements Engine on a chromium tab driven through rod.
type RodEngine struct {
	browser *rod.Browser
	page    *rod.Page
	owned   bool
}

// Launch starts a browser and opens one tab. Close releases both.
func Launch(ctx context.Context, opts RodOptions) (*RodEngine, error) {
	wsURL, err := launcher.New().Headless(opts.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("create tab: %w", err)
	}

	return &RodEngine{browser: browser, page: page, owned: true}, nil
}

func (e *RodEngine) Navigate(ctx context.Context, url string) error {
	p := e.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.WaitLoad()
}

func (e *RodEngine) HTML(ctx context.Context) (string, error) {
	res, err := e.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("serialize dom: %w", err)
	}
	return res.Value.Str(), nil
}

func (e *RodEngine) URL() string {
	info, err := e.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (e *RodEngine) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := e.page.Context(ctx).Has(selector)
	return has, err
}

func (e *RodEngine) Click(ctx context.Context, selector string) error {
	el, err := e.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *RodEngine) Type(ctx context.Context, selector, text string, submit bool) error {
	el, err := e.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	if submit {
		return el.Type(input.Enter)
	}
	return nil
}

func (e *RodEngine) Text(ctx context.Context, selector string) (string, error) {
	el, err := e.page.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("find %q: %w", selector, err)
	}
	return el.Text()
}

func (e *RodEngine) RunScript(ctx context.Context, js string) error {
	_, err := e.page.Context(ctx).Eval(js)
	return err
}

func (e *RodEngine) Frame(ctx context.Context, name string) (Engine, error) {
	el, err := e.page.Context(ctx).Element(fmt.Sprintf("iframe[name=%q]", name))
	if err != nil {
		return nil, fmt.Errorf("find frame %q: %w", name, err)
	}
	frame, err := el.Frame()
	if err != nil {
		return nil, fmt.Errorf("enter frame %q: %w", name, err)
	}
	return &RodEngine{browser: e.browser, page: frame}, nil
}

func (e *RodEngine) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := e.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("export cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	return out, nil
}

// Close shuts the tab, and the browser when this engine launched it. Frame
// engines only detach.
func (e *RodEngine) Close() error {
	if !e.owned {
		return nil
	}
	if err := e.page.Close(); err != nil {
		return err
	}
	return e.browser.Close()
}
