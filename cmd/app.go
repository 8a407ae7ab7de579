// Package cmd implements the CLI application to track equity holdings across
// several profiles.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/config"
	"github.com/etnz/tracker/eodhd"
	"github.com/etnz/tracker/exchangerate"
	"github.com/etnz/tracker/jsonbin"
	"github.com/etnz/tracker/logger"
	"github.com/etnz/tracker/s3store"
	"github.com/etnz/tracker/yahoo"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", os.Getenv(EnvConfig), "Path to the YAML configuration file (default "+config.DefaultPath()+")")
var profileName = flag.String("profile", os.Getenv(EnvProfile), "Profile to work on, instead of the one selected with 'profile-use'")
var Verbose = flag.Bool("v", os.Getenv(EnvVerbose) == "true", "Verbose output: debug logs on the console")
var rawMarkdown = flag.Bool("md", false, "Print reports as raw markdown instead of styled terminal output")

// groups lists the subcommands by help group.
var groups = []struct {
	name     string
	commands []subcommands.Command
}{
	{"holdings", []subcommands.Command{&addCmd{}, &importCmd{}, &refreshCmd{}, &holdingsCmd{}, &editCmd{}, &removeCmd{}, &resetCmd{}}},
	{"profiles", []subcommands.Command{&profilesCmd{}, &profileCreateCmd{}, &profileDeleteCmd{}, &profileUseCmd{}}},
	{"market", []subcommands.Command{&searchCmd{}}},
	{"server", []subcommands.Command{&serveCmd{}}},
	{"help", []subcommands.Command{&topicCmd{}}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range groups {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

// Commands returns every registered subcommand.
func Commands() []subcommands.Command {
	var all []subcommands.Command
	for _, g := range groups {
		all = append(all, g.commands...)
	}
	return all
}

// app is everything a command needs, built from the configuration.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	session *tracker.Session
	// loadErr is why the remote document could not be loaded, if it could
	// not. The session then holds the empty document.
	loadErr error
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	if *Verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Pretty = true
	}
	return cfg, nil
}

// openApp loads the configuration, builds the session and loads the remote
// document. Metrics are registered on reg when not nil.
func openApp(ctx context.Context, reg prometheus.Registerer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	quotes, err := newQuotes(cfg, log)
	if err != nil {
		return nil, err
	}
	blob, err := newBlob(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	fallback, err := cfg.FallbackRates()
	if err != nil {
		return nil, err
	}

	metrics := tracker.NewMetrics(reg)
	session := tracker.NewSession(tracker.SessionConfig{
		Quotes:     quotes,
		Rates:      newRates(cfg, log),
		Remote:     &tracker.Remote{Blob: blob, Log: log, Metrics: metrics},
		Display:    cfg.Display,
		IngestTTL:  cfg.TTL.Ingest,
		RefreshTTL: cfg.TTL.Refresh,
		RateTTL:    cfg.TTL.FX,
		StaleTTL:   cfg.TTL.FXStale,
		Fallback:   fallback,
		Log:        log,
		Metrics:    metrics,
	})

	a := &app{cfg: cfg, log: log, session: session}
	if err := session.Load(ctx); err != nil && !errors.Is(err, tracker.ErrNotFound) {
		a.loadErr = err
	}
	if err := a.selectProfile(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// selectProfile activates the -profile flag, or else the profile saved by
// 'profile-use'. A saved profile that no longer exists is ignored.
func (a *app) selectProfile(ctx context.Context) error {
	name, fromFlag := *profileName, true
	if name == "" {
		name, fromFlag = readActiveProfile(), false
	}
	if name == "" {
		return nil
	}
	err := a.session.Update(ctx, false, func(s *tracker.Store) error { return s.SetActive(name) })
	if err != nil && !fromFlag {
		a.log.Warn().Str("profile", name).Msg("selected profile no longer exists, using the default one")
		return nil
	}
	return err
}

// mutate runs f on the store and saves the document. It refuses to run when
// the remote document exists but could not be loaded, saving would replace
// it with the empty document.
func (a *app) mutate(ctx context.Context, f func(*tracker.Store) error) error {
	if err := a.writable(); err != nil {
		return err
	}
	return a.session.Update(ctx, true, f)
}

func (a *app) writable() error {
	if a.loadErr != nil {
		return fmt.Errorf("the remote document could not be loaded, refusing to overwrite it: %w", a.loadErr)
	}
	return nil
}

// newQuotes builds the configured market data source.
func newQuotes(cfg config.Config, log zerolog.Logger) (tracker.MarketData, error) {
	switch cfg.Quotes.Provider {
	case config.ProviderYahoo:
		chart, summary := cfg.Quotes.YahooChartURL, cfg.Quotes.YahooSummaryURL
		if chart == "" {
			chart = yahoo.DefaultChartURL
		}
		if summary == "" {
			summary = yahoo.DefaultSummaryURL
		}
		return yahoo.NewClientWithBaseURL(chart, summary, log), nil
	case config.ProviderEODHD:
		return newEODHD(cfg, log), nil
	}
	return nil, fmt.Errorf("unknown quotes provider %q", cfg.Quotes.Provider)
}

// newRates builds the configured exchange rate source.
func newRates(cfg config.Config, log zerolog.Logger) tracker.RateSource {
	if cfg.FX.Provider == config.ProviderEODHD {
		return newEODHD(cfg, log)
	}
	return exchangerate.NewClient(cfg.FX.BaseURL, log)
}

func newEODHD(cfg config.Config, log zerolog.Logger) *eodhd.Client {
	return eodhd.NewClient(eodhd.Config{
		APIKey:   cfg.Quotes.EODHD.APIKey,
		BaseURL:  cfg.Quotes.EODHD.BaseURL,
		CacheDir: cfg.Quotes.EODHD.CacheDir,
	}, log)
}

// newBlob builds the configured document store.
func newBlob(ctx context.Context, cfg config.Config, log zerolog.Logger) (tracker.Blob, error) {
	switch cfg.Store.Backend {
	case config.BackendJSONBin:
		j := cfg.Store.JSONBin
		return jsonbin.NewClient(j.BaseURL, j.BinID, j.MasterKey, log), nil
	case config.BackendS3:
		s := cfg.Store.S3
		store, err := s3store.Open(ctx, s3store.Config{
			Bucket:          s.Bucket,
			Key:             s.Key,
			Region:          s.Region,
			Endpoint:        s.Endpoint,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendFile:
		return tracker.FileBlob{Path: cfg.Store.File}, nil
	case config.BackendMemory:
		return tracker.NewMemoryBlob(nil), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// activeProfileFile keeps the profile selected by 'profile-use'. It is local
// to the machine, the remote document does not carry an active profile.
func activeProfileFile() string { return filepath.Join(config.Dir(), "active-profile") }

func readActiveProfile() string {
	data, err := os.ReadFile(activeProfileFile())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func writeActiveProfile(name string) error {
	path := activeProfileFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(name+"\n"), 0o644)
}

// printMarkdown prints a markdown report, styled for the terminal unless -md
// is set.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// progress prints a batch progress line on stderr.
func progress(label string) tracker.Progress {
	return func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r%s %d/%d", label, done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
