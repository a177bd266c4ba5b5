package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ederavini/cryptotax"
	"github.com/google/subcommands"
)

type syncCmd struct {
	events bool
}

func (*syncCmd) Name() string { return "sync" }
func (*syncCmd) Synopsis() string {
	return "fetch new activity and prices from the configured sources, then report"
}
func (*syncCmd) Usage() string {
	return `ctax sync [-events]

  Pulls the activity ledger and daily closes from every configured source,
  merges them into the local state and prints the yearly tax report. Merging
  is incremental and idempotent: running sync twice fetches only what is new
  and never duplicates entries.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.events, "events", false, "Also list every disposal event.")
}

func (c *syncCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, store, err := openState()
	if err != nil {
		return fail(err)
	}

	var sources []cryptotax.ActivitySource
	for _, name := range cfg.Sources {
		switch name {
		case "kraken":
			k, err := cryptotax.KrakenFromEnv()
			if err != nil {
				return fail(err)
			}
			sources = append(sources, k)
		default:
			return fail(fmt.Errorf("unknown source %q in configuration", name))
		}
	}
	if len(sources) == 0 {
		return fail(fmt.Errorf("no sources configured, nothing to synchronize"))
	}

	res, err := cryptotax.SynchronizeAndCompute(cfg, store, sources...)
	if err != nil {
		return fail(err)
	}

	printReport(os.Stdout, res.Report)
	if c.events {
		fmt.Println()
		printEvents(os.Stdout, res.Events)
	}
	printWarnings(res.Warnings)
	return subcommands.ExitSuccess
}
