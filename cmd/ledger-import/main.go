package main

import (
	"os"

	"bitbucket.org/mmdatafocus/ledger_import/cmd/ledger-import/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
