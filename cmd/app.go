// Package cmd implements the ctax subcommands.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/ederavini/cryptotax"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Commands lists every subcommand, in the order they are registered.
var Commands = []subcommands.Command{
	&syncCmd{},
	&taxesCmd{},
	&balanceCmd{},
	&importPricesCmd{},
}

var (
	stateDir   = flag.String("state-dir", ".ctax", "Path to the state directory (ledger, prices, sync state)")
	configFile = flag.String("config", "ctax.json", "Path to the configuration file")
	verbose    = flag.Bool("v", false, "Enable verbose logging")
)

// Setup configures logging from the global flags. Called once, after flag
// parsing, before any command runs.
func Setup() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// openState loads the configuration and opens the state directory.
func openState() (*cryptotax.Config, *cryptotax.Store, error) {
	cfg, err := cryptotax.LoadConfig(*configFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := cryptotax.OpenStore(*stateDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// fail prints the error and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

// printWarnings lists data-quality warnings on stderr, grouped as fetched.
func printWarnings(warnings []cryptotax.Warning) {
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "Warning:", w)
	}
	if n := len(warnings); n > 0 {
		fmt.Fprintf(os.Stderr, "%d warning(s); figures may rest on partial data\n", n)
	}
}
