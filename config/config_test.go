package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/tracker"
	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.TTL.Refresh != 10*time.Second || cfg.TTL.Ingest != 60*time.Second || cfg.TTL.FX != 5*time.Minute {
		t.Errorf("Default().TTL = %+v", cfg.TTL)
	}
	rates, err := cfg.FallbackRates()
	if err != nil {
		t.Fatal(err)
	}
	if got := rates[tracker.Pair{From: "USD", To: "KRW"}]; got != 1400 {
		t.Errorf("fallback USD/KRW = %v, want 1400", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pt.yaml")
	yaml := `
store:
  backend: jsonbin
  jsonbin:
    binID: 65f0c0ffee
    masterKey: from-file
quotes:
  provider: eodhd
  eodhd:
    apiKey: k
fx:
  provider: eodhd
  fallback:
    USD/EUR: 0.9
display: EUR
ttl:
  refresh: 5s
  ingest: 30s
  fx: 10m
  fxStale: 12h
server:
  refreshSchedule: "0 18 * * 1-5"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PT_JSONBIN_MASTER_KEY", "from-env")
	t.Setenv("PT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	want.Store.Backend = BackendJSONBin
	want.Store.JSONBin = JSONBinConfig{BinID: "65f0c0ffee", MasterKey: "from-env"}
	want.Quotes.Provider = ProviderEODHD
	want.Quotes.EODHD.APIKey = "k"
	want.FX.Provider = ProviderEODHD
	want.FX.Fallback = map[string]float64{"USD/KRW": 1400, "USD/EUR": 0.9}
	want.Display = "EUR"
	want.TTL = TTLConfig{Refresh: 5 * time.Second, Ingest: 30 * time.Second, FX: 10 * time.Minute, FXStale: 12 * time.Hour}
	want.Log.Level = "debug"
	want.Server.RefreshSchedule = "0 18 * * 1-5"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("Load() of an explicit missing file succeeded, want an error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PT_STORE":        "s3",
		"PT_S3_BUCKET":    "bucket",
		"PT_S3_ENDPOINT":  "http://localhost:9000",
		"PT_TTL_FX":       "15m",
		"PT_LOG_PRETTY":   "true",
		"PT_DISPLAY":      "JPY",
		"PT_UNRELATED":    "x",
		"PT_TTL_FX_STALE": "",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv() error = %v", err)
	}
	if cfg.Store.Backend != BackendS3 || cfg.Store.S3.Bucket != "bucket" || cfg.Store.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("applyEnv() store = %+v", cfg.Store)
	}
	if cfg.TTL.FX != 15*time.Minute || cfg.TTL.FXStale != tracker.DefaultStaleTTL {
		t.Errorf("applyEnv() ttl = %+v", cfg.TTL)
	}
	if !cfg.Log.Pretty || cfg.Display != "JPY" {
		t.Errorf("applyEnv() = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	for _, bad := range []map[string]string{{"PT_TTL_INGEST": "soon"}, {"PT_LOG_PRETTY": "sometimes"}} {
		cfg := Default()
		if err := cfg.applyEnv(func(k string) string { return bad[k] }); err == nil {
			t.Errorf("applyEnv(%v) succeeded, want an error", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"refresh longer than ingest", func(c *Config) { c.TTL.Refresh = 2 * time.Minute }, "ttl.ingest"},
		{"ingest longer than fx", func(c *Config) { c.TTL.Ingest = time.Hour }, "ttl.fx"},
		{"zero refresh", func(c *Config) { c.TTL.Refresh = 0 }, "ttl.refresh"},
		{"stale shorter than fx", func(c *Config) { c.TTL.FXStale = time.Minute }, "ttl.fxStale"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "ftp" }, "unknown store backend"},
		{"jsonbin without key", func(c *Config) { c.Store.Backend = BackendJSONBin }, "binID"},
		{"eodhd without key", func(c *Config) { c.Quotes.Provider = ProviderEODHD }, "apiKey"},
		{"bad display", func(c *Config) { c.Display = "WON!" }, "ISO 4217"},
		{"bad fallback", func(c *Config) { c.FX.Fallback = map[string]float64{"USD/KRW": -1} }, "fx.fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
