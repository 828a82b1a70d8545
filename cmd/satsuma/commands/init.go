package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/satsuma/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing files"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	out := g.out()
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	written, err := config.Scaffold(filepath.Dir(root.Config), i.Force)
	for _, p := range written {
		_, _ = fmt.Fprintf(out, "Created %s\n", p)
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "Initialized; run `satsuma serve` to start.")
	return nil
}
