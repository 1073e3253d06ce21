package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aristath/stockledger/internal/report"
)

type reconcileCmd struct {
	dryRun bool
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "rebuild positions from transaction history" }
func (*reconcileCmd) Usage() string {
	return `ledgerctl reconcile [-n]

  Recalculates every position from its full transaction history and repairs
  stored positions that drifted. With -n, drift is only reported.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "Report drift without repairing it")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	result, err := container.Reconciler.Run(ctx, !c.dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Print(os.Stdout, report.Reconcile(result))
	return subcommands.ExitSuccess
}

type backupCmd struct{}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "snapshot the ledger into a backup archive" }
func (*backupCmd) Usage() string {
	return `ledgerctl backup

  Writes a compressed, checksummed archive to the backup directory, uploads it
  when a bucket is configured, and applies retention.
`
}

func (*backupCmd) SetFlags(*flag.FlagSet) {}

func (*backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	result, err := container.BackupService.CreateBackup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Print(os.Stdout, report.Backup(result))
	return subcommands.ExitSuccess
}

type backupsCmd struct{}

func (*backupsCmd) Name() string     { return "backups" }
func (*backupsCmd) Synopsis() string { return "list local and remote backup archives" }
func (*backupsCmd) Usage() string {
	return `ledgerctl backups

  Lists backup archives, newest first.
`
}

func (*backupsCmd) SetFlags(*flag.FlagSet) {}

func (*backupsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	list, err := container.BackupService.ListBackups(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Print(os.Stdout, report.Backups(list))
	return subcommands.ExitSuccess
}
