package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/etnz/tracker/server"
)

type serveCmd struct {
	addr     string
	schedule string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard API" }
func (*serveCmd) Usage() string {
	return `pt serve [-addr <addr>] [-schedule <cron spec>]

  Serves the holdings over a JSON API, with Prometheus metrics on /metrics,
  and refreshes the active profile on a schedule.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (default from the configuration)")
	f.StringVar(&c.schedule, "schedule", "", "cron spec of the refresh job, \"off\" disables it (default from the configuration)")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := openApp(ctx, reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.writable(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	cfg := a.cfg.Server
	if c.addr != "" {
		cfg.Addr = c.addr
	}
	switch c.schedule {
	case "":
	case "off":
		cfg.RefreshSchedule = ""
	default:
		cfg.RefreshSchedule = c.schedule
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Addr,
		Session:         a.session,
		Gatherer:        reg,
		RefreshSchedule: cfg.RefreshSchedule,
		CORSOrigins:     cfg.CORSOrigins,
		Log:             a.log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
