package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/michezo/core/catalog"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	registry *catalog.Registry
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [args] - manage database migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  catalog [-engine ID]   - list registered engines and skins")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	catalogCmd := flag.NewFlagSet("catalog", flag.ExitOnError)
	catalogEngine := catalogCmd.String("engine", "", "Only list skins compatible with this engine.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "catalog":
		if err := catalogCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.catalog(*catalogEngine)
	default:
		cli.printUsage()
		return errHelp
	}
}
