package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/ederavini/cryptotax"
	"github.com/google/subcommands"
)

type balanceCmd struct{}

func (*balanceCmd) Name() string { return "balance" }
func (*balanceCmd) Synopsis() string {
	return "show year-end holdings valued at the year-end close"
}
func (*balanceCmd) Usage() string {
	return `ctax balance

  Prints, for each calendar year the ledger spans, the per-asset holdings at
  December 31st together with their EUR value at the year-end close (or the
  nearest earlier one). Works entirely from the local state.
`
}

func (*balanceCmd) SetFlags(*flag.FlagSet) {}

func (*balanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, store, err := openState()
	if err != nil {
		return fail(err)
	}
	res, err := cryptotax.Compute(cfg, store)
	if err != nil {
		return fail(err)
	}
	printBalances(os.Stdout, res.Balances)
	return subcommands.ExitSuccess
}
