package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/config"
	"github.com/etnz/tracker/eodhd"
	"github.com/etnz/tracker/jsonbin"
	"github.com/etnz/tracker/s3store"
	"github.com/etnz/tracker/yahoo"
)

// fakeMarket serves the Yahoo and exchangerate-api endpoints for AAPL only.
func fakeMarket(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("ticker") != "AAPL" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":190},"indicators":{"quote":[{"close":[189,190]}]}}]}}`)
	})
	mux.HandleFunc("/v10/finance/quoteSummary/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("ticker") != "AAPL" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"quoteSummary":{"result":[{"assetProfile":{"sector":"Technology"},"price":{"currency":"USD","regularMarketPrice":{"raw":190},"marketCap":{"raw":3000000000000}}}]}}`)
	})
	mux.HandleFunc("/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{"USD":1,"KRW":1400}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setup points the CLI to a temporary configuration and document file, and
// returns the document path.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	srv := fakeMarket(t)

	doc := filepath.Join(dir, "portfolio.json")
	cfg := fmt.Sprintf(`store:
  backend: file
  file: %s
quotes:
  provider: yahoo
  yahooChartURL: %s
  yahooSummaryURL: %s
fx:
  provider: exchangerate
  baseURL: %s/latest
display: USD
log:
  level: error
`, doc, srv.URL, srv.URL, srv.URL)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	oldConfig, oldProfile, oldRaw := *configPath, *profileName, *rawMarkdown
	*configPath, *profileName, *rawMarkdown = path, "", true
	t.Cleanup(func() { *configPath, *profileName, *rawMarkdown = oldConfig, oldProfile, oldRaw })
	return doc
}

func run(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet("pt", flag.ContinueOnError)
	c := subcommands.NewCommander(fs, "pt")
	Register(c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing %v: %v", args, err)
	}
	return c.Execute(t.Context())
}

func readDocument(t *testing.T, path string) tracker.Document {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	doc, _, err := tracker.DecodeDocument(raw)
	if err != nil {
		t.Fatalf("decoding document: %v", err)
	}
	return doc
}

type step struct {
	args []string
	want subcommands.ExitStatus
}

func runSteps(t *testing.T, steps []step) {
	t.Helper()
	for _, s := range steps {
		if got := run(t, s.args...); got != s.want {
			t.Errorf("pt %s = %v, want %v", strings.Join(s.args, " "), got, s.want)
		}
	}
}

func TestProfileCommands(t *testing.T) {
	doc := setup(t)

	runSteps(t, []step{
		{[]string{"profile-create", "Kids"}, subcommands.ExitSuccess},
		{[]string{"profile-create", "Kids"}, subcommands.ExitFailure},
		{[]string{"profile-create"}, subcommands.ExitUsageError},
		{[]string{"profiles"}, subcommands.ExitSuccess},
		{[]string{"profile-use", "Nope"}, subcommands.ExitFailure},
		{[]string{"profile-use", "Kids"}, subcommands.ExitSuccess},
		{[]string{"profile-delete", "Default"}, subcommands.ExitUsageError},
		{[]string{"profile-delete", "-y", "Default"}, subcommands.ExitSuccess},
		{[]string{"profile-delete", "-y", "Kids"}, subcommands.ExitFailure},
	})

	if got := readActiveProfile(); got != "Kids" {
		t.Errorf("active profile = %q, want Kids", got)
	}
	got := readDocument(t, doc)
	if _, ok := got.Profiles["Kids"]; !ok || len(got.Profiles) != 1 {
		t.Errorf("saved profiles = %v, want only Kids", got.Profiles)
	}
}

func TestHoldingCommands(t *testing.T) {
	doc := setup(t)
	batch := filepath.Join(t.TempDir(), "lots.csv")
	if err := os.WriteFile(batch, []byte("AAPL,100,1\nBAD\nZZZ,1,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runSteps(t, []step{
		{[]string{"add", "AAPL", "150", "10"}, subcommands.ExitSuccess},
		{[]string{"add", "ZZZ", "1", "1"}, subcommands.ExitFailure},
		{[]string{"add", "AAPL", "x", "1"}, subcommands.ExitUsageError},
		{[]string{"add", "AAPL", "1"}, subcommands.ExitUsageError},
		{[]string{"import", batch}, subcommands.ExitSuccess},
		{[]string{"import", filepath.Join(t.TempDir(), "missing.csv")}, subcommands.ExitFailure},
	})
	if got := readDocument(t, doc).Profiles["Default"]; len(got) != 2 {
		t.Fatalf("saved %d lots after import, want 2: %+v", len(got), got)
	}

	runSteps(t, []step{
		{[]string{"edit", "2", "120", "2"}, subcommands.ExitSuccess},
		{[]string{"edit", "0", "120", "2"}, subcommands.ExitUsageError},
		{[]string{"edit", "9", "120", "2"}, subcommands.ExitFailure},
		{[]string{"remove", "1"}, subcommands.ExitSuccess},
		{[]string{"holdings", "-c", "KRW"}, subcommands.ExitSuccess},
		{[]string{"refresh"}, subcommands.ExitSuccess},
	})
	got := readDocument(t, doc).Profiles["Default"]
	want := tracker.Holding{Ticker: "AAPL", AvgPrice: 120, Quantity: 2, CurrentPrice: 190, Sector: "Technology", MarketCapClass: tracker.MegaCap}
	if len(got) != 1 || got[0] != want {
		t.Errorf("saved lots = %+v, want [%+v]", got, want)
	}

	runSteps(t, []step{
		{[]string{"reset"}, subcommands.ExitUsageError},
		{[]string{"reset", "-y"}, subcommands.ExitSuccess},
	})
	if got := readDocument(t, doc).Profiles["Default"]; len(got) != 0 {
		t.Errorf("saved lots after reset = %+v, want none", got)
	}
}

func TestProfileFlag(t *testing.T) {
	doc := setup(t)
	runSteps(t, []step{{[]string{"profile-create", "Kids"}, subcommands.ExitSuccess}})

	*profileName = "Kids"
	runSteps(t, []step{{[]string{"add", "AAPL", "150", "1"}, subcommands.ExitSuccess}})
	*profileName = "Nope"
	runSteps(t, []step{{[]string{"holdings"}, subcommands.ExitFailure}})

	got := readDocument(t, doc)
	if len(got.Profiles["Kids"]) != 1 || len(got.Profiles["Default"]) != 0 {
		t.Errorf("saved profiles = %+v, want the lot in Kids only", got.Profiles)
	}
}

func TestDegradedLoadIsReadOnly(t *testing.T) {
	doc := setup(t)
	if err := os.WriteFile(doc, []byte(`{"profiles": [`), 0o644); err != nil {
		t.Fatal(err)
	}

	runSteps(t, []step{
		{[]string{"profiles"}, subcommands.ExitSuccess},
		{[]string{"add", "AAPL", "150", "10"}, subcommands.ExitFailure},
		{[]string{"profile-create", "Kids"}, subcommands.ExitFailure},
	})

	raw, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"profiles": [` {
		t.Errorf("document = %q, want it untouched", raw)
	}
}

func TestLotIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 0, false},
		{"12", 11, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"one", 0, true},
	}
	for _, tc := range tests {
		got, err := lotIndex(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("lotIndex(%q) = %d, %v, want %d, error %v", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}

func TestNewBlob(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))

	tests := []struct {
		name  string
		store config.StoreConfig
		check func(tracker.Blob) bool
	}{
		{"jsonbin", config.StoreConfig{Backend: config.BackendJSONBin, JSONBin: config.JSONBinConfig{BinID: "b", MasterKey: "k"}},
			func(b tracker.Blob) bool { _, ok := b.(*jsonbin.Client); return ok }},
		{"s3", config.StoreConfig{Backend: config.BackendS3, S3: config.S3Config{Bucket: "b", Key: "k", Region: "us-east-1", AccessKeyID: "id", SecretAccessKey: "secret"}},
			func(b tracker.Blob) bool { _, ok := b.(*s3store.Store); return ok }},
		{"file", config.StoreConfig{Backend: config.BackendFile, File: "p.json"},
			func(b tracker.Blob) bool { f, ok := b.(tracker.FileBlob); return ok && f.Path == "p.json" }},
		{"memory", config.StoreConfig{Backend: config.BackendMemory},
			func(b tracker.Blob) bool { _, ok := b.(*tracker.MemoryBlob); return ok }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := newBlob(context.Background(), config.Config{Store: tc.store}, zerolog.Nop())
			if err != nil {
				t.Fatalf("newBlob() error = %v", err)
			}
			if !tc.check(b) {
				t.Errorf("newBlob() = %T, not the %s backend", b, tc.name)
			}
		})
	}

	if _, err := newBlob(context.Background(), config.Config{Store: config.StoreConfig{Backend: "ftp"}}, zerolog.Nop()); err == nil {
		t.Error("newBlob(ftp) succeeded, want an error")
	}
}

func TestNewQuotesAndRates(t *testing.T) {
	cfg := config.Default()
	q, err := newQuotes(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newQuotes() error = %v", err)
	}
	if _, ok := q.(*yahoo.Client); !ok {
		t.Errorf("newQuotes(yahoo) = %T, want *yahoo.Client", q)
	}

	cfg.Quotes.Provider = config.ProviderEODHD
	cfg.FX.Provider = config.ProviderEODHD
	cfg.Quotes.EODHD.APIKey = "demo"
	q, err = newQuotes(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newQuotes() error = %v", err)
	}
	if _, ok := q.(*eodhd.Client); !ok {
		t.Errorf("newQuotes(eodhd) = %T, want *eodhd.Client", q)
	}
	if r := newRates(cfg, zerolog.Nop()); r == nil {
		t.Error("newRates(eodhd) = nil")
	} else if _, ok := r.(*eodhd.Client); !ok {
		t.Errorf("newRates(eodhd) = %T, want *eodhd.Client", r)
	}

	cfg.Quotes.Provider = "bloomberg"
	if _, err := newQuotes(cfg, zerolog.Nop()); err == nil {
		t.Error("newQuotes(bloomberg) succeeded, want an error")
	}
}

func TestTopicCommand(t *testing.T) {
	setup(t)
	runSteps(t, []step{
		{[]string{"topic"}, subcommands.ExitSuccess},
		{[]string{"topic", "storage", "server"}, subcommands.ExitSuccess},
		{[]string{"topic", "nope"}, subcommands.ExitFailure},
	})
}
