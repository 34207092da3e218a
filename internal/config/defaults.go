package config

import "time"

// Default source and output locations, relative to Root.
const (
	DefaultPostsDir       = "posts"
	DefaultExperimentsDir = "experiments"
	DefaultLayoutsDir     = "layouts"
	DefaultAssetsDir      = "assets"
	DefaultOutputDir      = "docs"
)

const (
	DefaultLayoutExtension = ".liquid"
	DefaultDebounce        = 2 * time.Second
	DefaultSassTimeout     = 30 * time.Second
)

func applyDefaults(cfg *Config) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	p := &cfg.Paths
	if p.Posts == "" {
		p.Posts = DefaultPostsDir
	}
	if p.Experiments == "" {
		p.Experiments = DefaultExperimentsDir
	}
	if p.Layouts == "" {
		p.Layouts = DefaultLayoutsDir
	}
	if p.Assets == "" {
		p.Assets = DefaultAssetsDir
	}
	if p.Output == "" {
		p.Output = DefaultOutputDir
	}
	if cfg.Render.LayoutExtension == "" {
		cfg.Render.LayoutExtension = DefaultLayoutExtension
	}
	if cfg.Render.Tables == nil {
		cfg.Render.Tables = boolPtr(true)
	}
	if cfg.Render.UnsafeHTML == nil {
		cfg.Render.UnsafeHTML = boolPtr(true)
	}
	if cfg.Sass.Timeout == 0 {
		cfg.Sass.Timeout = DefaultSassTimeout
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
}

func boolPtr(b bool) *bool { return &b }
