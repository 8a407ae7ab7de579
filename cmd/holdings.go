package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/subcommands"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/renderer"
)

// addCmd holds the flags for the 'add' subcommand.
type addCmd struct{}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a lot of a ticker to the active profile" }
func (*addCmd) Usage() string {
	return `pt add <ticker> <avg price> <quantity>

  Looks up the ticker and appends a new lot to the active profile. The
  average price is per unit, in USD. Adding a ticker already held appends a
  separate lot.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "Error: expected a ticker, an average price and a quantity.")
		return subcommands.ExitUsageError
	}
	avg, err := strconv.ParseFloat(f.Arg(1), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing average price: %v\n", err)
		return subcommands.ExitUsageError
	}
	qty, err := strconv.ParseFloat(f.Arg(2), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.writable(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	h, err := a.session.AddHolding(ctx, f.Arg(0), avg, qty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding %s: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	if err := a.session.Save(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Added %v %s at $%.2f (current $%.2f, %s, %s)\n", h.Quantity, h.Ticker, h.AvgPrice, h.CurrentPrice, h.Sector, h.MarketCapClass)
	return subcommands.ExitSuccess
}

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import lots from a CSV file" }
func (*importCmd) Usage() string {
	return `pt import [<file.csv>]

  Imports a headerless CSV of "ticker,avgPrice,quantity" rows into the active
  profile, reading stdin when no file (or "-") is given. Invalid rows and
  tickers that cannot be looked up are skipped and reported.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var r io.Reader = os.Stdin
	if name := f.Arg(0); name != "" && name != "-" {
		file, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", name, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		r = file
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.writable(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	res, err := a.session.Import(ctx, r, progress("importing"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if res.Succeeded > 0 {
		if err := a.session.Save(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	printMarkdown(renderer.RenderBatch(res))
	return subcommands.ExitSuccess
}

// refreshCmd holds the flags for the 'refresh' subcommand.
type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "update current prices of the active profile" }
func (*refreshCmd) Usage() string {
	return `pt refresh

  Fetches the current price, sector and market cap class of every holding of
  the active profile and saves them. Holdings whose ticker cannot be looked up
  keep their previous values.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.writable(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	res := a.session.Refresh(ctx, progress("refreshing"))
	if res.Updated > 0 {
		if err := a.session.Save(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	printMarkdown(renderer.RenderRefresh(res))
	return subcommands.ExitSuccess
}

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	currency string
	refresh  bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the holdings of the active profile" }
func (*holdingsCmd) Usage() string {
	return `pt holdings [-c <currency>] [-u]

  Displays every lot of the active profile with its value and profit, the
  totals, and the breakdown by sector and by market cap class.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Display currency (default from the configuration)")
	f.BoolVar(&c.refresh, "u", false, "refresh prices before displaying the report")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.refresh {
		res := a.session.Refresh(ctx, progress("refreshing"))
		if len(res.Failed) > 0 {
			printMarkdown(renderer.RenderRefresh(res))
		}
		if res.Updated > 0 && a.writable() == nil {
			if err := a.session.Save(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
				return subcommands.ExitFailure
			}
		}
	}

	var profile string
	a.session.View(func(s *tracker.Store) { profile = s.Active() })
	printMarkdown(renderer.RenderValuation(profile, a.session.Valuation(ctx, c.currency)))
	return subcommands.ExitSuccess
}

// editCmd holds the flags for the 'edit' subcommand.
type editCmd struct{}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change the cost basis of a lot" }
func (*editCmd) Usage() string {
	return `pt edit <#> <avg price> <quantity>

  Changes the average price and quantity of the lot numbered # in the
  holdings report of the active profile.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "Error: expected a lot number, an average price and a quantity.")
		return subcommands.ExitUsageError
	}
	i, err := lotIndex(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	avg, err := strconv.ParseFloat(f.Arg(1), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing average price: %v\n", err)
		return subcommands.ExitUsageError
	}
	qty, err := strconv.ParseFloat(f.Arg(2), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing quantity: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.mutate(ctx, func(s *tracker.Store) error { return s.EditHolding(i, avg, qty) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error editing lot %s: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Lot %s updated.\n", f.Arg(0))
	return subcommands.ExitSuccess
}

// removeCmd holds the flags for the 'remove' subcommand.
type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a lot from the active profile" }
func (*removeCmd) Usage() string {
	return `pt remove <#>

  Removes the lot numbered # in the holdings report of the active profile.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected a lot number.")
		return subcommands.ExitUsageError
	}
	i, err := lotIndex(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	var removed tracker.Holding
	err = a.mutate(ctx, func(s *tracker.Store) (err error) {
		removed, err = s.RemoveHolding(i)
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing lot %s: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Removed %v %s.\n", removed.Quantity, removed.Ticker)
	return subcommands.ExitSuccess
}

// resetCmd holds the flags for the 'reset' subcommand.
type resetCmd struct {
	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "remove every lot of the active profile" }
func (*resetCmd) Usage() string {
	return `pt reset -y

  Removes every lot of the active profile. The profile itself is kept.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "confirm the reset")
}

func (c *resetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Error: reset removes every lot of the active profile, confirm with -y.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	var profile string
	err = a.mutate(ctx, func(s *tracker.Store) error {
		profile = s.Active()
		s.ClearActive()
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Profile %q is now empty.\n", profile)
	return subcommands.ExitSuccess
}

// lotIndex converts a 1-based lot number into an index.
func lotIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid lot number %q", s)
	}
	return n - 1, nil
}
