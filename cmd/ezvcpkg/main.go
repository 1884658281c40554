package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ezvcpkg/cmd/ezvcpkg/commands"
	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("ezvcpkg"),
		kong.Description("Prepare a cached, versioned vcpkg installation for CMake builds."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		return errors.NewCLIErrorAdapter(false, slog.Default()).Report(errors.InternalError("failed to build CLI").WithCause(err).Build())
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return errors.ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global := &commands.Global{Ctx: ctx, Logger: slog.Default(), Out: os.Stdout}
	err = kctx.Run(global, cli)
	return errors.NewCLIErrorAdapter(cli.Debug, slog.Default()).Report(err)
}
