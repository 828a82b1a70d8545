package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/satsuma/cmd/satsuma/commands"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("satsuma"),
		kong.Description("Incremental static site builder with live reload."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(&commands.Global{Out: os.Stdout}, cli)
	os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err))
}
