package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/refsite/cmd/refsite/commands"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("refsite"),
		kong.Description("Static site builder with audio reference bundles and live preview."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	if err == nil {
		return
	}
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	adapter.LogError(err)
	fmt.Fprintln(os.Stderr, adapter.FormatError(err))
	os.Exit(adapter.ExitCodeFor(err))
}
