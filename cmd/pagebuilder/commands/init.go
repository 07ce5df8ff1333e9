package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = config.DefaultPath
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Configuration written to %s\n", path)
	_, _ = fmt.Fprintf(g.Out, "Put pages under %s and run 'pagebuilder build'.\n", config.Default().Content.Directory)
	return nil
}
