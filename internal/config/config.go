// Package config loads the sitebuilder configuration.
//
// The file is optional: a missing sitebuilder.yaml yields the defaults, which
// describe the conventional layout (posts/, experiments/, layouts/, assets/
// and docs/ as the output root). Values may reference environment variables
// as ${VAR}; a .env file beside the config is loaded first without
// overriding the process environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// DefaultFile is the config file name looked up when none is given.
const DefaultFile = "sitebuilder.yaml"

// Config is the complete build and watch configuration.
type Config struct {
	// Root is the project directory all relative paths resolve against.
	Root   string       `yaml:"root"`
	Paths  PathsConfig  `yaml:"paths"`
	Render RenderConfig `yaml:"render"`
	Sass   SassConfig   `yaml:"sass"`
	Build  BuildConfig  `yaml:"build"`
	Watch  WatchConfig  `yaml:"watch"`
}

// PathsConfig locates the source trees and the output root.
type PathsConfig struct {
	Posts       string `yaml:"posts"`
	Experiments string `yaml:"experiments"`
	Layouts     string `yaml:"layouts"`
	Assets      string `yaml:"assets"`
	Output      string `yaml:"output"`
}

// RenderConfig controls markdown and layout rendering.
type RenderConfig struct {
	LayoutExtension string `yaml:"layout_extension"`
	StrictVariables bool   `yaml:"strict_variables"`
	Tables          *bool  `yaml:"tables,omitempty"`
	UnsafeHTML      *bool  `yaml:"unsafe_html,omitempty"`
}

// SassConfig configures the embedded Dart Sass compiler.
type SassConfig struct {
	Binary       string        `yaml:"binary"`
	IncludePaths []string      `yaml:"include_paths"`
	Timeout      time.Duration `yaml:"timeout"`
	// EmitPartials also writes _name.scss partials as standalone CSS.
	EmitPartials bool `yaml:"emit_partials"`
}

// BuildConfig controls a single build run.
type BuildConfig struct {
	// Clean removes the output root before writing.
	Clean bool `yaml:"clean"`
	// MetricsFile, when set, receives the Prometheus text exposition after every build.
	MetricsFile string `yaml:"metrics_file"`
}

// WatchConfig controls the watch loop.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	// RebuildInterval schedules periodic rebuilds; zero disables them.
	RebuildInterval time.Duration `yaml:"rebuild_interval"`
}

// Load reads configPath. An empty path means DefaultFile in the working
// directory; a missing file at the default location is not an error.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultFile
	}

	baseDir := filepath.Dir(configPath)
	if err := loadEnvFile(baseDir); err != nil {
		return nil, err
	}

	cfg := &Config{}
	// #nosec G304 -- config path is supplied by the operator
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse config").
				Fatal().WithContext("path", configPath).Build()
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read config").
			Fatal().WithContext("path", configPath).Build()
	}

	if cfg.Root == "" || !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(baseDir, cfg.Root)
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the defaults rooted at root.
func Default(root string) (*Config, error) {
	cfg := &Config{Root: root}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile loads dir/.env when present. Existing variables win.
func loadEnvFile(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "load .env").
			WithContext("path", envPath).Build()
	}
	return nil
}
