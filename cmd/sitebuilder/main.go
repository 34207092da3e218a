package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/blackmann/home-archive-2022-01/cmd/sitebuilder/commands"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("sitebuilder"),
		kong.Description("Build the blog and experiments site from local sources."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	global := &commands.Global{Context: ctx, Logger: slog.Default()}
	err := parser.Run(global, cli)
	stop()
	if err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
