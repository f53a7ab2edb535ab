package commands

import (
	"context"
	"fmt"
	"os"

	"finscrape/lib/browserauto"
	"finscrape/lib/configutil"
	"finscrape/lib/sources/registry"
	"finscrape/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finscrape",
	Short: "finscrape scrapes accounts, transactions, investments and bills from configured sources.",
}

var configPath *string

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "finscrape.json5", "The source configuration to use.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type SourceConfig struct {
	Source   string `json:"source"`
	BaseURL  string `json:"base_url"`
	Login    string `json:"login"`
	Password string `json:"password"`
	// Browser launches a rendering engine for sources whose login needs
	// one.
	Browser bool `json:"browser"`
}

type Config struct {
	Sources map[string]SourceConfig `json:"sources"`
}

func buildSource(ctx context.Context, name string) registry.Source {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	entry, ok := cfg.Sources[name]
	if !ok {
		serviceutil.Fatal("unknown source", fmt.Errorf("%q is not configured", name))
	}

	build := registry.Config{
		BaseURL:  entry.BaseURL,
		Login:    entry.Login,
		Password: entry.Password,
	}
	if entry.Browser {
		engine, err := browserauto.Launch(ctx, browserauto.RodOptions{
			Headless: true,
			Stealth:  true,
		})
		if err != nil {
			serviceutil.Fatal("failed to launch browser engine", err)
		}
		build.Engine = engine
	}

	source, err := registry.New().Build(entry.Source, build)
	if err != nil {
		serviceutil.Fatal("failed to build source", err)
	}
	return source
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
