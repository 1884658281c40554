package commands

import (
	"fmt"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing configuration file"`
	Path  string `arg:"" optional:"" default:"ezvcpkg.yaml" help:"Where to write the configuration" type:"path"`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	_, _ = fmt.Fprintf(g.Out, "Writing configuration to %s\n", i.Path)
	if err := config.Init(i.Path, i.Force); err != nil {
		return errors.ConfigError("initialization failed").WithCause(err).WithContext("path", i.Path).Build()
	}
	return nil
}
