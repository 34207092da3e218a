package config

import (
	"path/filepath"
	"strings"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// Normalize applies defaults, resolves every path to an absolute clean path
// and validates the result.
func Normalize(cfg *Config) error {
	applyDefaults(cfg)

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "resolve root").
			WithContext("root", cfg.Root).Build()
	}
	cfg.Root = root

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(root, p)
	}
	cfg.Paths.Posts = resolve(cfg.Paths.Posts)
	cfg.Paths.Experiments = resolve(cfg.Paths.Experiments)
	cfg.Paths.Layouts = resolve(cfg.Paths.Layouts)
	cfg.Paths.Assets = resolve(cfg.Paths.Assets)
	cfg.Paths.Output = resolve(cfg.Paths.Output)
	if cfg.Build.MetricsFile != "" {
		cfg.Build.MetricsFile = resolve(cfg.Build.MetricsFile)
	}
	for i, inc := range cfg.Sass.IncludePaths {
		cfg.Sass.IncludePaths[i] = resolve(inc)
	}
	if !strings.HasPrefix(cfg.Render.LayoutExtension, ".") {
		cfg.Render.LayoutExtension = "." + cfg.Render.LayoutExtension
	}

	return Validate(cfg)
}

// Validate checks a normalized configuration.
func Validate(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return ferrors.ValidationError("watch.debounce must not be negative").
			WithContext("value", cfg.Watch.Debounce.String()).Build()
	}
	if cfg.Watch.RebuildInterval < 0 {
		return ferrors.ValidationError("watch.rebuild_interval must not be negative").
			WithContext("value", cfg.Watch.RebuildInterval.String()).Build()
	}
	if cfg.Sass.Timeout < 0 {
		return ferrors.ValidationError("sass.timeout must not be negative").Build()
	}

	out := cfg.Paths.Output
	if out == cfg.Root {
		return ferrors.ValidationError("output directory must not be the project root").
			WithContext("output", out).Build()
	}
	sources := map[string]string{
		"posts":       cfg.Paths.Posts,
		"experiments": cfg.Paths.Experiments,
		"layouts":     cfg.Paths.Layouts,
		"assets":      cfg.Paths.Assets,
	}
	for name, src := range sources {
		if IsWithin(out, src) || IsWithin(src, out) {
			return ferrors.ValidationError("output directory overlaps a source directory").
				WithContext("output", out).
				WithContext(name, src).Build()
		}
	}
	return nil
}

// IsWithin reports whether path equals root or lies below it. Both must be clean.
func IsWithin(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
