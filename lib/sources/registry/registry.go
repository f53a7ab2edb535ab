// Package registry maps source names to constructors so callers can build a
// configured connection from a name and credentials without importing every
// source package.
package registry

import (
	"context"
	"fmt"

	"finscrape/lib/browserauto"
	"finscrape/lib/records"
	"finscrape/lib/sources/billhub"
	"finscrape/lib/sources/brokerdirect"
	"finscrape/lib/sources/demobank"
	"finscrape/lib/sources/demobankapi"
	"finscrape/lib/sources/porbank"
)

// Config carries everything a source constructor may need. Fields a given
// source does not use are ignored.
type Config struct {
	BaseURL  string
	Login    string
	Password string
	// Engine is only consulted by sources whose login needs a rendering
	// engine.
	Engine browserauto.Engine
	// OTP is only consulted by sources with device enrollment.
	OTP func(ctx context.Context) (string, error)
}

// Source is a configured connection to one site. Callers probe the
// capability interfaces below for what it can list.
type Source interface {
	Name() string
}

type AccountLister interface {
	Source
	Accounts(ctx context.Context) ([]records.Account, error)
}

type HistoryLister interface {
	Source
	History(ctx context.Context, accountID string) ([]records.Transaction, error)
}

type InvestmentLister interface {
	Source
	Investments(ctx context.Context, account records.Account) ([]records.Investment, error)
}

type SubscriptionLister interface {
	Source
	Subscriptions(ctx context.Context) ([]records.Subscription, error)
	Bills(ctx context.Context, subscriptionID string) ([]records.Bill, error)
}

// Builder constructs a configured source.
type Builder func(cfg Config) (Source, error)

type Registry struct {
	builders map[string]Builder
}

// New returns a registry holding every built-in source. linebroker is
// absent on purpose: it has no standalone login and is only usable with a
// parent bank's authenticated transport (linebroker.ClientOptions.Transport).
func New() *Registry {
	r := &Registry{builders: map[string]Builder{}}
	r.Register("demobank", buildDemobank)
	r.Register("demobankapi", buildDemobankAPI)
	r.Register("porbank", buildPorbank)
	r.Register("brokerdirect", buildBrokerdirect)
	r.Register("billhub", buildBillhub)
	return r
}

// Register adds or replaces a source builder.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

// Names lists the registered source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// Build constructs the named source.
func (r *Registry) Build(name string, cfg Config) (Source, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("source %q is not registered", name)
	}
	return b(cfg)
}

type named struct{ name string }

func (n named) Name() string { return n.name }

type demobankSource struct {
	named
	*demobank.Client
}

func buildDemobank(cfg Config) (Source, error) {
	client, err := demobank.NewClient(demobank.ClientOptions{
		BaseURL:  cfg.BaseURL,
		Login:    cfg.Login,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &demobankSource{named{"demobank"}, client}, nil
}

type demobankAPISource struct {
	named
	*demobankapi.Client
}

func buildDemobankAPI(cfg Config) (Source, error) {
	client, err := demobankapi.NewClient(demobankapi.ClientOptions{
		BaseURL:  cfg.BaseURL,
		Login:    cfg.Login,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &demobankAPISource{named{"demobankapi"}, client}, nil
}

type porbankSource struct {
	named
	*porbank.Client
}

func buildPorbank(cfg Config) (Source, error) {
	client, err := porbank.NewClient(porbank.ClientOptions{
		BaseURL:  cfg.BaseURL,
		Login:    cfg.Login,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &porbankSource{named{"porbank"}, client}, nil
}

type brokerdirectSource struct {
	named
	*brokerdirect.Client
}

func buildBrokerdirect(cfg Config) (Source, error) {
	client, err := brokerdirect.NewClient(brokerdirect.ClientOptions{
		BaseURL:  cfg.BaseURL,
		Login:    cfg.Login,
		Password: cfg.Password,
		Engine:   cfg.Engine,
		OTP:      cfg.OTP,
	})
	if err != nil {
		return nil, err
	}
	return &brokerdirectSource{named{"brokerdirect"}, client}, nil
}

type billhubSource struct {
	named
	*billhub.Client
}

func buildBillhub(cfg Config) (Source, error) {
	client, err := billhub.NewClient(billhub.ClientOptions{
		BaseURL:  cfg.BaseURL,
		Email:    cfg.Login,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &billhubSource{named{"billhub"}, client}, nil
}
