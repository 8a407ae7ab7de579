package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/renderer"
)

type profilesCmd struct{}

func (*profilesCmd) Name() string     { return "profiles" }
func (*profilesCmd) Synopsis() string { return "list the profiles" }
func (*profilesCmd) Usage() string {
	return `pt profiles

  Lists every profile with its number of lots, and marks the active one.
`
}

func (c *profilesCmd) SetFlags(f *flag.FlagSet) {}

func (c *profilesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	var p *renderer.Profiles
	a.session.View(func(s *tracker.Store) { p = renderer.NewProfiles(s) })
	printMarkdown(renderer.RenderProfiles(p))
	return subcommands.ExitSuccess
}

type profileCreateCmd struct{}

func (*profileCreateCmd) Name() string     { return "profile-create" }
func (*profileCreateCmd) Synopsis() string { return "create an empty profile" }
func (*profileCreateCmd) Usage() string {
	return `pt profile-create <name>

  Creates a new empty profile. The active profile is unchanged.
`
}

func (c *profileCreateCmd) SetFlags(f *flag.FlagSet) {}

func (c *profileCreateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected a profile name.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.mutate(ctx, func(s *tracker.Store) error { return s.CreateProfile(f.Arg(0)) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating profile: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Profile %q created.\n", f.Arg(0))
	return subcommands.ExitSuccess
}

type profileDeleteCmd struct {
	yes bool
}

func (*profileDeleteCmd) Name() string     { return "profile-delete" }
func (*profileDeleteCmd) Synopsis() string { return "delete a profile and its lots" }
func (*profileDeleteCmd) Usage() string {
	return `pt profile-delete -y <name>

  Deletes a profile and all its lots. The last remaining profile cannot be
  deleted.
`
}

func (c *profileDeleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "confirm the deletion")
}

func (c *profileDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected a profile name.")
		return subcommands.ExitUsageError
	}
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Error: deleting a profile removes all its lots, confirm with -y.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.mutate(ctx, func(s *tracker.Store) error { return s.DeleteProfile(f.Arg(0)) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting profile: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Profile %q deleted.\n", f.Arg(0))
	return subcommands.ExitSuccess
}

type profileUseCmd struct{}

func (*profileUseCmd) Name() string     { return "profile-use" }
func (*profileUseCmd) Synopsis() string { return "select the active profile" }
func (*profileUseCmd) Usage() string {
	return `pt profile-use <name>

  Makes <name> the active profile of the next commands on this machine. The
  -profile flag takes precedence for a single command.
`
}

func (c *profileUseCmd) SetFlags(f *flag.FlagSet) {}

func (c *profileUseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected a profile name.")
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)
	a, err := openApp(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.session.Update(ctx, false, func(s *tracker.Store) error { return s.SetActive(name) }); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := writeActiveProfile(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving the active profile: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Active profile is now %q.\n", name)
	return subcommands.ExitSuccess
}
