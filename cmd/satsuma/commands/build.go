package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/satsuma/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	NoClean bool `name:"no-clean" help:"Keep existing public files instead of emptying the directory first"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := openProject(root)
	if err != nil {
		return err
	}
	defer p.Close()

	clean := p.svc.CleanByDefault() && !b.NoClean
	_, rep, err := p.svc.Full(ctx, clean)
	if err != nil {
		return err
	}
	printReport(g, rep)
	return nil
}

func printReport(g *Global, rep *build.Report) {
	_, _ = fmt.Fprintf(g.out(), "%s build %s: %d changed, %d unchanged, %d dropped in %s\n",
		rep.Kind, rep.Status, len(rep.Changed), rep.Unchanged, rep.Dropped,
		rep.Duration.Round(time.Millisecond))
}
