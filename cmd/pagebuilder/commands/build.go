package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	Incremental bool   `short:"i" help:"Re-render only pages whose source changed since the last build"`
	FailOnError bool   `help:"Exit non-zero when any page fails to load or render"`
	MetricsFile string `help:"Write build metrics in Prometheus text format to this file" type:"path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	reg := prom.NewRegistry()
	fs := afero.NewOsFs()
	builder, err := build.NewBuilder(cfg, fs, fs,
		build.WithLogger(g.Logger),
		build.WithRecorder(metrics.NewPrometheusRecorder(reg)),
		build.WithIncremental(b.Incremental),
		build.WithFailOnError(b.FailOnError),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, buildErr := builder.Build(ctx)
	if report != nil {
		printReport(g, report, cfg.Output.Directory)
	}
	if b.MetricsFile != "" {
		if err := prom.WriteToTextfile(b.MetricsFile, reg); err != nil {
			g.Logger.Warn("Cannot write metrics file", "path", b.MetricsFile, "error", err)
		}
	}
	if buildErr != nil {
		if ctx.Err() != nil {
			return errors.WrapError(buildErr, errors.CategoryInternal, "build canceled").Build()
		}
		return buildErr
	}
	return nil
}

func printReport(g *Global, report *build.Report, dir string) {
	_, _ = fmt.Fprintf(g.Out, "Build %s: %s\n", report.BuildID, report.Status)
	_, _ = fmt.Fprintf(g.Out, "  rendered %d, skipped %d, failed %d, removed %d, assets %d\n",
		report.Rendered(), report.Skipped(), report.Failed()+len(report.LoadErrors), len(report.Removed), report.Assets)
	for _, err := range report.Errors() {
		_, _ = fmt.Fprintf(g.Out, "  ✗ %v\n", err)
	}
	_, _ = fmt.Fprintf(g.Out, "Output written to %s (%s)\n", dir, report.Duration.Round(1e6))
}
