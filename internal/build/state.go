package build

import (
	"log/slog"

	"github.com/blackmann/home-archive-2022-01/internal/assets"
	"github.com/blackmann/home-archive-2022-01/internal/config"
	"github.com/blackmann/home-archive-2022-01/internal/content"
	"github.com/blackmann/home-archive-2022-01/internal/index"
	"github.com/blackmann/home-archive-2022-01/internal/metrics"
	"github.com/blackmann/home-archive-2022-01/internal/render"
)

// State is the build context shared by the stages of one run. It is created
// fresh by every Run and never shared between runs.
type State struct {
	Config   *config.Config
	Logger   *slog.Logger
	Recorder metrics.Recorder
	Report   *Report

	markdown content.MarkdownRenderer
	compiler assets.Compiler

	Posts       []*content.Post
	Experiments []*content.Experiment
	Index       *index.Index
	Composer    *render.Composer
}
