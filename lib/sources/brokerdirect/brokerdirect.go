// Package brokerdirect scrapes an online broker whose login runs through a
// script-heavy enrollment widget inside an iframe. A browser-automation
// engine performs the login, then its cookies are exported to the plain HTTP
// client that fetches the data pages.
package brokerdirect

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"finscrape/lib/browserauto"
	"finscrape/lib/fetch"
	"finscrape/lib/records"
	"finscrape/lib/scrape/page"
	"finscrape/lib/scrape/scrapeerr"
	"finscrape/lib/scrape/session"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sources/brokerdirect")

const (
	KindAccounts page.Kind = "accounts"
	KindInvest   page.Kind = "invest"
)

// An unauthenticated data request answers with a frame-busting redirect
// stub instead of a 4xx.
const notLoggedMarker = `function setTop(){top.location="/fr/actualites"}`

func classifier() *page.Classifier {
	logged := func(d *page.Document) bool {
		return !strings.Contains(d.Raw, notLoggedMarker)
	}
	return &page.Classifier{
		Matchers: []page.Matcher{
			{
				Kind:   KindAccounts,
				Match:  func(d *page.Document) bool { return d.Has("select#nc") },
				Logged: logged,
			},
			{
				// The portfolio endpoint answers a raw blob, not
				// markup.
				Kind: KindInvest,
				Match: func(d *page.Document) bool {
					return strings.HasPrefix(strings.TrimSpace(d.Raw), "message=")
				},
				Logged: func(d *page.Document) bool {
					return !strings.HasPrefix(strings.TrimSpace(d.Raw), "<")
				},
			},
		},
	}
}

type ClientOptions struct {
	BaseURL  string
	Login    string
	Password string
	// OTP supplies the code received by SMS during device enrollment.
	// Nil is fine for already enrolled devices.
	OTP func(ctx context.Context) (string, error)
	// Engine drives the interactive login. The client never closes it.
	Engine browserauto.Engine
}

type Client struct {
	opts   ClientOptions
	driver *session.Driver
	logged bool
}

func NewClient(opts ClientOptions) (*Client, error) {
	transport, err := fetch.NewClient(fetch.Options{
		BaseURL:    opts.BaseURL,
		TracerName: "sources/brokerdirect/http",
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		opts: opts,
		driver: &session.Driver{
			Name:       "brokerdirect",
			Client:     transport,
			Classifier: classifier(),
		},
	}, nil
}

const removeAdvertisingScript = `() => {
	for (const id of ['dfp-videoPop', 'dfp_catFish', 'pub1000x90']) {
		const el = document.getElementById(id);
		if (el) el.parentNode.removeChild(el);
	}
	for (const el of [...document.getElementsByTagName('iframe')]) {
		if (el.name == 'google_osd_static_frame' ||
			el.title == '3rd party ad content' ||
			el.id.startsWith('google_ads_iframe_')) {
			el.parentNode.removeChild(el);
		}
	}
	for (const el of [...document.getElementsByClassName('header-other')]) {
		el.parentNode.removeChild(el);
	}
}`

// ensureLoggedIn performs the interactive login once per client, then seeds
// the HTTP transport with the browser's session cookies.
func (c *Client) ensureLoggedIn(ctx context.Context) error {
	if c.logged {
		return nil
	}
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	if c.opts.Engine == nil {
		return fmt.Errorf("brokerdirect: login requires a browser engine")
	}
	if err := c.engineLogin(ctx); err != nil {
		return err
	}

	cookies, err := c.opts.Engine.Cookies(ctx)
	if err != nil {
		return err
	}
	transport, ok := c.driver.Client.(*fetch.Client)
	if !ok {
		return fmt.Errorf("brokerdirect: transport cannot receive cookies")
	}
	transport.SetCookies(cookies)
	c.logged = true
	return nil
}

// engineLogin walks the enrollment widget state machine: username form,
// then inside the "inwebo" frame either the password prompt or the
// first-use sequence (SMS code, profile creation, confirmation).
func (c *Client) engineLogin(ctx context.Context) error {
	engine := c.opts.Engine
	if err := engine.Navigate(ctx, c.opts.BaseURL+"fr/connexion"); err != nil {
		return err
	}

	const maxSteps = 12
	for step := 0; step < maxSteps; step++ {
		// Ads overlay the form controls.
		if err := engine.RunScript(ctx, removeAdvertisingScript); err != nil {
			return err
		}

		if done, err := c.loginStep(ctx, engine); err != nil {
			return err
		} else if done {
			return nil
		}
	}
	return fmt.Errorf("%w after %d steps", scrapeerr.ErrLoginLoop, 12)
}

func (c *Client) loginStep(ctx context.Context, engine browserauto.Engine) (bool, error) {
	if has, err := engine.Has(ctx, "input#idLogin"); err != nil {
		return false, err
	} else if has {
		return false, engine.Type(ctx, "input#idLogin", c.opts.Login, true)
	}

	frame, err := engine.Frame(ctx, "inwebo")
	if err != nil {
		// No widget frame and no username form: the session landed
		// on the authenticated site.
		return true, nil
	}

	switch {
	case has(ctx, frame, "div#iw_pwderror"):
		msg, _ := frame.Text(ctx, "div#iw_pwderror")
		if strings.TrimSpace(msg) != "" {
			return false, scrapeerr.BadCredentials(msg)
		}
	case has(ctx, frame, "input#iw_id") && has(ctx, frame, "input#submit1"):
		if c.opts.OTP == nil {
			return false, scrapeerr.ActionNeeded("device enrollment requires the code received by SMS")
		}
		otp, err := c.opts.OTP(ctx)
		if err != nil {
			return false, err
		}
		return false, frame.Type(ctx, "input#iw_id", otp, true)
	case has(ctx, frame, "input#iw_profile") && has(ctx, frame, "input#iw_pwd_confirm"):
		if err := frame.Type(ctx, "input#iw_profile", c.opts.Login, false); err != nil {
			return false, err
		}
		return false, frame.Type(ctx, "input#iw_pwd_confirm", c.opts.Password, true)
	case has(ctx, frame, "span#LBL_activate_success"):
		return false, frame.Click(ctx, "input#activate_end_action_success")
	case has(ctx, frame, "input#iw_pwd"):
		if err := frame.Type(ctx, "div#iwloginfield input#iw_0", c.opts.Login, false); err != nil {
			return false, err
		}
		return false, frame.Type(ctx, "input#iw_pwd", c.opts.Password, true)
	}
	return false, nil
}

func has(ctx context.Context, engine browserauto.Engine, selector string) bool {
	found, err := engine.Has(ctx, selector)
	return err == nil && found
}

// Accounts lists the securities accounts of the picker, fetching each
// account's inventory page for its balance.
func (c *Client) Accounts(ctx context.Context) ([]records.Account, error) {
	ctx, span := tracer.Start(ctx, "Accounts")
	defer span.End()

	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	p, err := c.driver.Go(ctx, "priv/compte.php", nil)
	if err != nil {
		return nil, err
	}
	if !p.Logged() {
		return nil, fmt.Errorf("%w: session rejected by accounts page", scrapeerr.ErrBadCredentials)
	}
	accounts, err := extractAccounts(p.Doc)
	if err != nil {
		return nil, err
	}

	for i := range accounts {
		detail, err := c.driver.Go(ctx, "priv/compte.php",
			url.Values{"nc": {accounts[i].URL}})
		if err != nil {
			return nil, err
		}
		balance, err := extractTotalBalance(detail.Doc)
		if err != nil {
			return nil, err
		}
		accounts[i].Balance = balance
	}
	return accounts, nil
}

// Investments lists the holdings of one account, liquidity line included.
func (c *Client) Investments(ctx context.Context, account records.Account) ([]records.Investment, error) {
	ctx, span := tracer.Start(ctx, "Investments")
	defer span.End()

	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	p, err := c.driver.Go(ctx, "streaming/compteTempsReelCK.php",
		url.Values{"nc": {account.URL}})
	if err != nil {
		return nil, err
	}
	if p.Kind != KindInvest {
		return nil, fmt.Errorf("expected portfolio blob, got %q", p.Kind)
	}

	investments, err := parseInvestBlob(p.Doc.Raw)
	if err != nil {
		return nil, err
	}
	liquidity, err := parseLiquidity(p.Doc.Raw)
	if err != nil {
		return nil, err
	}
	return append(investments, liquidity), nil
}
