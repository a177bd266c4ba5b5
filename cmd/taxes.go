package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ederavini/cryptotax"
	"github.com/google/subcommands"
)

type taxesCmd struct {
	events bool
	asJSON bool
}

func (*taxesCmd) Name() string { return "taxes" }
func (*taxesCmd) Synopsis() string {
	return "compute the yearly tax report from the local state, without going online"
}
func (*taxesCmd) Usage() string {
	return `ctax taxes [-events] [-json]

  Replays the persisted ledger against the persisted price table and prints
  the realized gains, taxable amounts and tax due per calendar year. The
  report is fully derived: the same state and configuration always produce
  the same figures.
`
}

func (c *taxesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.events, "events", false, "Also list every disposal event.")
	f.BoolVar(&c.asJSON, "json", false, "Emit the full result as JSON.")
}

func (c *taxesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, store, err := openState()
	if err != nil {
		return fail(err)
	}
	res, err := cryptotax.Compute(cfg, store)
	if err != nil {
		return fail(err)
	}

	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	printReport(os.Stdout, res.Report)
	if c.events {
		fmt.Println()
		printEvents(os.Stdout, res.Events)
	}
	printWarnings(res.Warnings)
	return subcommands.ExitSuccess
}
