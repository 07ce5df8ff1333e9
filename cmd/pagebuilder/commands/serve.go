package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr    string `short:"a" help:"Listen address (overrides preview.addr)"`
	NoWatch bool   `help:"Do not reload when content changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Preview.Addr = s.Addr
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []preview.Option{
		preview.WithLogger(g.Logger),
		preview.WithRegistry(reg),
		preview.WithRecorder(metrics.NewPrometheusRecorder(reg)),
	}
	if s.NoWatch {
		opts = append(opts, preview.WithoutWatch())
	}
	srv, err := preview.New(cfg, afero.NewOsFs(), opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
