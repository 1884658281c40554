package commands

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/lock"
)

// UnlockCmd implements the 'unlock' command.
type UnlockCmd struct {
	Path string `arg:"" optional:"" help:"Lock file to remove (defaults to the configured lock)" type:"path"`
}

func (u *UnlockCmd) Run(g *Global, root *CLI) error {
	path := u.Path
	if path == "" {
		cfg, err := root.loadRaw()
		if err != nil {
			return err
		}
		if err := config.ApplyDefaults(cfg); err != nil {
			return errors.ConfigError("failed to resolve lock path").WithCause(err).Build()
		}
		path = cfg.Lock.Path
	}

	if _, err := os.Lstat(path); stderrors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(g.Out, "No lock at %s\n", path)
		return nil
	}
	if err := lock.Remove(path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Removed lock %s\n", path)
	return nil
}
