package commands

import (
	"time"

	"github.com/blackmann/home-archive-2022-01/internal/build"
	"github.com/blackmann/home-archive-2022-01/internal/config"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
	"github.com/blackmann/home-archive-2022-01/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output          string        `short:"o" help:"Override the output directory"`
	Clean           bool          `help:"Remove the output directory before the initial build"`
	Debounce        time.Duration `help:"Quiet period before a change triggers a rebuild (overrides watch.debounce)"`
	RebuildInterval time.Duration `name:"rebuild-interval" help:"Rebuild periodically even without changes (overrides watch.rebuild_interval)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config, Overrides{Output: w.Output, Clean: w.Clean})
	if err != nil {
		return err
	}
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}
	if w.RebuildInterval > 0 {
		cfg.Watch.RebuildInterval = w.RebuildInterval
	}
	logger := g.logger()
	ctx := g.ctx()

	builder := build.New(cfg, build.WithLogger(logger))
	defer func() { _ = builder.Close() }()

	if _, err := builder.Run(ctx); err != nil {
		return err
	}
	// Rebuilds rewrite in place; only the initial build cleans.
	cfg.Build.Clean = false

	source, err := watch.NewWatcher(WatchRoots(cfg), []string{cfg.Paths.Output}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()
	logger.Debug("Watching directories", logfields.Count(len(source.WatchList())))

	filter := watch.NewFilter(AcceptRoots(cfg), []string{cfg.Paths.Output})
	loop := watch.NewLoop(builder, source, filter, watch.Options{
		Debounce:        cfg.Watch.Debounce,
		RebuildInterval: cfg.Watch.RebuildInterval,
		Logger:          logger,
	})
	return loop.Run(ctx)
}

// AcceptRoots are the source trees whose changes trigger a rebuild.
// Experiments are read at build time but not watched.
func AcceptRoots(cfg *config.Config) []string {
	return []string{cfg.Paths.Posts, cfg.Paths.Layouts, cfg.Paths.Assets}
}

// WatchRoots returns the project root plus any accept root that lies outside it.
func WatchRoots(cfg *config.Config) []string {
	roots := []string{cfg.Root}
	for _, r := range AcceptRoots(cfg) {
		if !config.IsWithin(cfg.Root, r) {
			roots = append(roots, r)
		}
	}
	return roots
}
