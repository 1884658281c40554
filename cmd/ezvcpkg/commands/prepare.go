package commands

import (
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
	"git.home.luguber.info/inful/ezvcpkg/internal/git"
	"git.home.luguber.info/inful/ezvcpkg/internal/metrics"
	"git.home.luguber.info/inful/ezvcpkg/internal/observability"
	"git.home.luguber.info/inful/ezvcpkg/internal/vcpkg"
)

// PrepareCmd implements the default 'prepare' command.
type PrepareCmd struct{}

func (p *PrepareCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	mgr, recorder, err := newManager(g, cfg)
	if err != nil {
		return err
	}

	ctx := observability.WithRunID(g.Ctx, observability.NewRunID())
	res, runErr := mgr.Run(ctx)
	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if res.ConfigChanged {
		_, _ = fmt.Fprintf(g.Out, "Wrote %s\n", res.ConfigPath)
	}
	return nil
}

// newManager wires the manager with the configured lock, a Prometheus recorder
// and git progress on stderr when debugging.
func newManager(g *Global, cfg *config.Config) (*vcpkg.Manager, *metrics.PrometheusRecorder, error) {
	locker, err := newLocker(cfg, g.Out)
	if err != nil {
		return nil, nil, err
	}
	recorder := metrics.NewPrometheusRecorder(nil)
	mgr := vcpkg.NewManager(vcpkg.OptionsFromConfig(cfg)).
		WithLocker(locker).
		WithRecorder(recorder).
		WithOutput(g.Out)
	if cfg.Logging.Level == config.LogLevelDebug {
		mgr.WithFetcher(git.NewClient().WithProgress(os.Stderr))
	}
	return mgr, recorder, nil
}
