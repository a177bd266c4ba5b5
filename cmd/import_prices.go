package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ederavini/cryptotax"
	"github.com/google/subcommands"
)

type importPricesCmd struct {
	asset string
}

func (*importPricesCmd) Name() string { return "import-prices" }
func (*importPricesCmd) Synopsis() string {
	return "import a historical daily-close CSV export for one asset"
}
func (*importPricesCmd) Usage() string {
	return `ctax import-prices -asset <symbol> <file.csv>

  Reads a headerless OHLC export (timestamp,open,high,low,close,volume,...)
  and merges its daily closes into the local price table. Days already
  covered by live-fetched closes are left untouched. Useful to backfill
  years that predate the API's history window.
`
}

func (c *importPricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "asset", "", "Canonical asset symbol the file covers (e.g. XXBT).")
}

func (c *importPricesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.asset == "" {
		return fail(fmt.Errorf("the -asset flag is required"))
	}
	if f.NArg() != 1 {
		return fail(fmt.Errorf("want exactly one CSV file, got %d arguments", f.NArg()))
	}
	symbol, known := cryptotax.Normalize(c.asset)
	if !known {
		fmt.Fprintf(os.Stderr, "Warning: asset %q is not a vetted symbol, importing as %s\n", c.asset, symbol)
	}

	_, store, err := openState()
	if err != nil {
		return fail(err)
	}
	added, warnings, err := cryptotax.ImportHistoricalPrices(store, symbol, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	printWarnings(warnings)
	fmt.Printf("%d close(s) imported for %s\n", added, symbol)
	return subcommands.ExitSuccess
}
