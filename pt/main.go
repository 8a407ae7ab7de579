// Command pt tracks equity holdings across several profiles.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/etnz/tracker/cmd"
	"github.com/etnz/tracker/docs"
)

func main() {
	completion().Complete("pt")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()

	if name := flag.Arg(0); name != "" && !known(name) {
		if found, code := cmd.RunExtension(name, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

func known(name string) bool {
	switch name {
	case "help", "flags", "commands":
		return true
	}
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// completion describes the command line for shell completion. Install it
// with COMP_INSTALL=1 pt.
func completion() *complete.Command {
	sub := map[string]*complete.Command{
		"help": {Sub: map[string]*complete.Command{}},
	}
	for _, c := range cmd.Commands() {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		flags := map[string]complete.Predictor{}
		fs.VisitAll(func(f *flag.Flag) { flags[f.Name] = predict.Something })
		var args complete.Predictor = predict.Nothing
		switch c.Name() {
		case "import":
			args = predict.Files("*.csv")
		case "topic":
			topics, _ := docs.All()
			args = predict.Set(append(topics, "*"))
		}
		sub[c.Name()] = &complete.Command{Flags: flags, Args: args}
		sub["help"].Sub[c.Name()] = &complete.Command{}
	}
	return &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"config":  predict.Files("*.yaml"),
			"profile": predict.Something,
			"v":       predict.Nothing,
			"md":      predict.Nothing,
		},
	}
}
