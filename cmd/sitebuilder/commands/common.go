package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/blackmann/home-archive-2022-01/internal/config"
)

// Global is shared state passed to every command.
type Global struct {
	Context context.Context
	Logger  *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults to ./sitebuilder.yaml when present)" default:""`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the site once and exit"`
	Watch WatchCmd `cmd:"" default:"1" help:"Build the site, then rebuild whenever sources change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// Overrides are command-line settings that take precedence over the config file.
type Overrides struct {
	Output string
	Clean  bool
}

// LoadConfig loads the configuration and applies CLI overrides.
func LoadConfig(path string, o Overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	changed := false
	if o.Output != "" {
		out := o.Output
		if !filepath.IsAbs(out) {
			abs, err := filepath.Abs(out)
			if err != nil {
				return nil, err
			}
			out = abs
		}
		cfg.Paths.Output = filepath.Clean(out)
		changed = true
	}
	if o.Clean {
		cfg.Build.Clean = true
	}
	if changed {
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
