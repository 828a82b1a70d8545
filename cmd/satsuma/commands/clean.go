package commands

import "context"

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	p, err := openProject(root)
	if err != nil {
		return err
	}
	defer p.Close()

	rep, err := p.svc.Clean(context.Background())
	if err != nil {
		return err
	}
	printReport(g, rep)
	return nil
}
