package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives command output meant for the user.
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults to pagebuilder.yaml when present)" env:"PAGEBUILDER_CONFIG" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Render every page into the output directory"`
	Render RenderCmd `cmd:"" help:"Render a single page file to stdout or a file"`
	Groups GroupsCmd `cmd:"" help:"List the feature groups of a page file"`
	Check  CheckCmd  `cmd:"" help:"Check pages for errors without writing output"`
	Serve  ServeCmd  `cmd:"" help:"Serve pages with live reload of content changes"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing and sets up logging once. Commands
// that load a configuration refine it with LoadConfig.
func (c *CLI) AfterApply(g *Global) error {
	if g.Out == nil {
		g.Out = os.Stdout
	}
	g.Logger = newLogger(os.Stderr, config.LoggingConfig{Level: config.LogLevelInfo, Format: config.LogFormatText}, c.Verbose)
	slog.SetDefault(g.Logger)
	return nil
}

// LoadConfig loads the configuration and applies its logging settings.
// Without --config, pagebuilder.yaml in the working directory is used if
// it exists.
func (c *CLI) LoadConfig(g *Global) (*config.Config, error) {
	path := c.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	g.Logger = newLogger(os.Stderr, cfg.Logging, c.Verbose)
	slog.SetDefault(g.Logger)
	if path != "" {
		g.Logger.Debug("Loaded configuration", slog.String("path", path))
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := cfg.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
