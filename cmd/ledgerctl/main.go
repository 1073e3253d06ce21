// Command ledgerctl reads reports from the ledger database and runs
// maintenance without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&summaryCmd{}, "reports")
	commander.Register(&performanceCmd{}, "reports")
	commander.Register(&dividendsCmd{}, "reports")

	commander.Register(&reconcileCmd{}, "maintenance")
	commander.Register(&backupCmd{}, "maintenance")
	commander.Register(&backupsCmd{}, "maintenance")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
