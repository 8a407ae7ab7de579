// Package config loads the pt configuration: an optional YAML file, then a
// .env file and PT_* environment variables on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/tracker"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendJSONBin = "jsonbin"
	BackendS3      = "s3"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Market data providers.
const (
	ProviderYahoo        = "yahoo"
	ProviderEODHD        = "eodhd"
	ProviderExchangeRate = "exchangerate"
)

// Config holds the whole pt configuration.
type Config struct {
	Store   StoreConfig  `yaml:"store"`
	Quotes  QuotesConfig `yaml:"quotes"`
	FX      FXConfig     `yaml:"fx"`
	Display string       `yaml:"display"` // display currency
	TTL     TTLConfig    `yaml:"ttl"`
	Log     LogConfig    `yaml:"log"`
	Server  ServerConfig `yaml:"server"`
}

type StoreConfig struct {
	Backend string        `yaml:"backend"`
	JSONBin JSONBinConfig `yaml:"jsonbin"`
	S3      S3Config      `yaml:"s3"`
	File    string        `yaml:"file"`
}

type JSONBinConfig struct {
	BaseURL   string `yaml:"baseURL"`
	BinID     string `yaml:"binID"`
	MasterKey string `yaml:"masterKey"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

type QuotesConfig struct {
	Provider        string      `yaml:"provider"`
	YahooChartURL   string      `yaml:"yahooChartURL"`
	YahooSummaryURL string      `yaml:"yahooSummaryURL"`
	EODHD           EODHDConfig `yaml:"eodhd"`
}

type EODHDConfig struct {
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
	CacheDir string `yaml:"cacheDir"`
}

type FXConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"baseURL"`
	// Fallback rates by pair ("USD/KRW"), used when no rate can be fetched.
	Fallback map[string]float64 `yaml:"fallback"`
}

// TTLConfig holds the cache lifetimes. FX > Ingest > Refresh.
type TTLConfig struct {
	Refresh time.Duration `yaml:"refresh"`
	Ingest  time.Duration `yaml:"ingest"`
	FX      time.Duration `yaml:"fx"`
	FXStale time.Duration `yaml:"fxStale"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RefreshSchedule is a cron spec for the periodic refresh, empty disables it.
	RefreshSchedule string   `yaml:"refreshSchedule"`
	CORSOrigins     []string `yaml:"corsOrigins"`
}

// Dir returns the directory of the default configuration and document files.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pt")
}

// DefaultPath is the configuration file read when none is given.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendFile,
			File:    filepath.Join(Dir(), "portfolio.json"),
			S3:      S3Config{Key: "pt/portfolio.json"},
		},
		Quotes:  QuotesConfig{Provider: ProviderYahoo},
		FX:      FXConfig{Provider: ProviderExchangeRate, Fallback: map[string]float64{"USD/KRW": 1400}},
		Display: "KRW",
		TTL: TTLConfig{
			Refresh: tracker.DefaultRefreshTTL,
			Ingest:  tracker.DefaultIngestTTL,
			FX:      tracker.DefaultRateTTL,
			FXStale: tracker.DefaultStaleTTL,
		},
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Addr: ":8080", RefreshSchedule: "@every 5m"},
	}
}

// Load reads the configuration.
//
// Defaults are overridden by the YAML file at path (a missing file is fine
// when path is the DefaultPath or empty), then by the .env file of the
// working directory and the PT_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath():
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides cfg with the PT_* variables set in getenv.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PT_STORE", &c.Store.Backend)
	str("PT_JSONBIN_URL", &c.Store.JSONBin.BaseURL)
	str("PT_JSONBIN_BIN_ID", &c.Store.JSONBin.BinID)
	str("PT_JSONBIN_MASTER_KEY", &c.Store.JSONBin.MasterKey)
	str("PT_S3_BUCKET", &c.Store.S3.Bucket)
	str("PT_S3_KEY", &c.Store.S3.Key)
	str("PT_S3_REGION", &c.Store.S3.Region)
	str("PT_S3_ENDPOINT", &c.Store.S3.Endpoint)
	str("PT_S3_ACCESS_KEY_ID", &c.Store.S3.AccessKeyID)
	str("PT_S3_SECRET_ACCESS_KEY", &c.Store.S3.SecretAccessKey)
	str("PT_FILE", &c.Store.File)
	str("PT_QUOTES", &c.Quotes.Provider)
	str("PT_EODHD_API_KEY", &c.Quotes.EODHD.APIKey)
	str("PT_FX", &c.FX.Provider)
	str("PT_FX_URL", &c.FX.BaseURL)
	str("PT_DISPLAY", &c.Display)
	str("PT_LOG_LEVEL", &c.Log.Level)
	str("PT_SERVER_ADDR", &c.Server.Addr)
	str("PT_REFRESH_SCHEDULE", &c.Server.RefreshSchedule)

	if v := getenv("PT_LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PT_LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = b
	}
	for key, dst := range map[string]*time.Duration{
		"PT_TTL_REFRESH":  &c.TTL.Refresh,
		"PT_TTL_INGEST":   &c.TTL.Ingest,
		"PT_TTL_FX":       &c.TTL.FX,
		"PT_TTL_FX_STALE": &c.TTL.FXStale,
	} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendJSONBin:
		if c.Store.JSONBin.BinID == "" || c.Store.JSONBin.MasterKey == "" {
			errs = append(errs, errors.New("store.jsonbin.binID and masterKey are required (or PT_JSONBIN_BIN_ID and PT_JSONBIN_MASTER_KEY)"))
		}
	case BackendS3:
		if c.Store.S3.Bucket == "" || c.Store.S3.Key == "" {
			errs = append(errs, errors.New("store.s3.bucket and key are required"))
		}
	case BackendFile:
		if c.Store.File == "" {
			errs = append(errs, errors.New("store.file is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	switch c.Quotes.Provider {
	case ProviderYahoo:
	case ProviderEODHD:
		if c.Quotes.EODHD.APIKey == "" {
			errs = append(errs, errors.New("quotes.eodhd.apiKey is required for the eodhd provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown quotes provider %q", c.Quotes.Provider))
	}
	switch c.FX.Provider {
	case ProviderExchangeRate:
	case ProviderEODHD:
		if c.Quotes.EODHD.APIKey == "" {
			errs = append(errs, errors.New("quotes.eodhd.apiKey is required for the eodhd fx provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown fx provider %q", c.FX.Provider))
	}

	if len(strings.TrimSpace(c.Display)) != 3 {
		errs = append(errs, fmt.Errorf("display currency %q is not an ISO 4217 code", c.Display))
	}
	if _, err := c.FallbackRates(); err != nil {
		errs = append(errs, err)
	}

	t := c.TTL
	switch {
	case t.Refresh <= 0:
		errs = append(errs, errors.New("ttl.refresh must be > 0"))
	case t.Ingest <= t.Refresh:
		errs = append(errs, fmt.Errorf("ttl.ingest (%v) must be longer than ttl.refresh (%v)", t.Ingest, t.Refresh))
	case t.FX <= t.Ingest:
		errs = append(errs, fmt.Errorf("ttl.fx (%v) must be longer than ttl.ingest (%v)", t.FX, t.Ingest))
	case t.FXStale < t.FX:
		errs = append(errs, fmt.Errorf("ttl.fxStale (%v) must not be shorter than ttl.fx (%v)", t.FXStale, t.FX))
	}
	return errors.Join(errs...)
}

// FallbackRates returns the fallback rates by pair.
func (c Config) FallbackRates() (map[tracker.Pair]float64, error) {
	rates := make(map[tracker.Pair]float64, len(c.FX.Fallback))
	for k, v := range c.FX.Fallback {
		p, err := tracker.ParsePair(k)
		if err != nil {
			return nil, fmt.Errorf("fx.fallback: %w", err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("fx.fallback: rate for %s must be > 0", p)
		}
		rates[p] = v
	}
	return rates, nil
}
