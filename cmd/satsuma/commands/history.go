package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Number of builds to show (0 for all)."`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	root.applyLogConfig(cfg.Log)
	if cfg.Journal.Path == "" {
		return errors.ConfigError("journal.path is not configured").Build()
	}
	layout, err := cfg.Layout()
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to resolve layout").Build()
	}
	j, err := openJournal(cfg, layout)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	entries, err := j.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tKIND\tCHANGED\tUNCHANGED\tDURATION\tSTATUS\tTRIGGER")
	for _, e := range entries {
		status := "ok"
		if e.Failed() {
			status = "failed: " + e.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			e.Started.Local().Format(time.DateTime), e.Kind, len(e.Changed), e.Unchanged,
			e.Duration.Round(time.Millisecond), status, e.Trigger)
	}
	return tw.Flush()
}
