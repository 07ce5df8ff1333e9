package commands

import (
	"fmt"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/pagebuilder/internal/build"
	"git.home.luguber.info/inful/pagebuilder/internal/check"
	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Path   string `arg:"" optional:"" help:"Content directory (defaults to content.directory)" type:"path"`
	Format string `short:"f" enum:"text,json" default:"text" help:"Output format (text or json)"`
	Quiet  bool   `short:"q" help:"Only report errors"`
	Strict bool   `help:"Treat warnings as errors"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	dir := cfg.Content.Directory
	if c.Path != "" {
		dir = c.Path
	}

	fs := afero.NewOsFs()
	if ok, _ := afero.DirExists(fs, dir); !ok {
		return errors.NotFoundError("content directory").WithFile(dir).Build()
	}
	renderer, err := build.NewRenderer(cfg, fs)
	if err != nil {
		return err
	}

	checker := check.NewChecker(&check.Context{
		Renderer:  renderer,
		Assets:    fs,
		AssetsDir: cfg.Content.Assets,
		BaseURL:   cfg.Site.BaseURL,
	})
	result := checker.Check(fs, dir)
	if c.Quiet {
		result.Filter(check.SeverityError)
	}

	if err := check.NewFormatter(c.Format).Format(g.Out, result, dir); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "cannot format check result").Build()
	}

	if result.HasErrors() || (c.Strict && result.HasWarnings()) {
		return errors.ValidationError(fmt.Sprintf("check found %d error(s) and %d warning(s)", result.ErrorCount(), result.WarningCount())).
			WithContext("path", dir).
			Build()
	}
	return nil
}
