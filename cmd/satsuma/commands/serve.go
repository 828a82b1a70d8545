package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"git.home.luguber.info/inful/satsuma/internal/devserver"
	"git.home.luguber.info/inful/satsuma/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Host string `name:"host" default:"localhost" help:"Interface to bind."`
	Port int    `name:"port" help:"Port to bind (overrides server.port)."`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := openProject(root)
	if err != nil {
		return err
	}
	defer p.Close()

	port := p.cfg.Server.Port
	if s.Port != 0 {
		port = s.Port
	}
	// bind before building so a busy port fails fast
	ln, err := devserver.Listen(net.JoinHostPort(s.Host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Serving %s at http://%s\n", p.layout.PublicDir, ln.Addr())

	pv := preview.New(p.svc).WithLogger(slog.Default())
	if p.registry != nil {
		pv.WithMetrics(p.registry)
	}
	return pv.Run(ctx, ln)
}
