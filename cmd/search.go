package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/tracker/eodhd"
	"github.com/etnz/tracker/logger"
)

// searchCmd implements the "search" command.
type searchCmd struct {
	eodhdAPIFlag string
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "searches for tickers on EODHD" }
func (*searchCmd) Usage() string {
	return `pt search <search term>

  Searches for securities via EOD Historical Data API and prints
  ready-to-use 'pt add' commands for the results.

  Requires an EODHD API key, from the -eodhd-api-key flag, the configuration
  or the PT_EODHD_API_KEY environment variable.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.eodhdAPIFlag, "eodhd-api-key", "", "EODHD API key. This flag takes precedence over the configuration. You can get one at https://eodhd.com/")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	searchTerm := strings.Join(f.Args(), " ")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	key := c.eodhdAPIFlag
	if key == "" {
		key = cfg.Quotes.EODHD.APIKey
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: EODHD API key is not set. Use -eodhd-api-key flag or PT_EODHD_API_KEY environment variable")
		return subcommands.ExitFailure
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	client := eodhd.NewClient(eodhd.Config{
		APIKey:   key,
		BaseURL:  cfg.Quotes.EODHD.BaseURL,
		CacheDir: cfg.Quotes.EODHD.CacheDir,
	}, log)

	results, err := client.Search(ctx, searchTerm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching securities: %v\n", err)
		return subcommands.ExitFailure
	}

	if len(results) == 0 {
		fmt.Printf("No results found for '%s'.\n", searchTerm)
		return subcommands.ExitSuccess
	}

	fmt.Printf("Found %d results for '%s':\n\n", len(results), searchTerm)

	for _, item := range results {
		fmt.Printf("➡️   Name       : %s (%s)\n", item.Name, item.Code)
		fmt.Printf("    Type        : %s, Country: %s, Currency: %s\n", item.Type, item.Country, item.Currency)
		if item.ISIN != "" {
			fmt.Printf("    ISIN        : %s\n", item.ISIN)
		}
		fmt.Printf("    Prev. Close : %.2f\n", item.PreviousClose)
		fmt.Printf("    $ pt add %s <avg price> <quantity>\n\n", item.Ticker())
	}

	return subcommands.ExitSuccess
}
