package build

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/blackmann/home-archive-2022-01/internal/assets"
	"github.com/blackmann/home-archive-2022-01/internal/config"
	"github.com/blackmann/home-archive-2022-01/internal/content"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
	"github.com/blackmann/home-archive-2022-01/internal/markdown"
	"github.com/blackmann/home-archive-2022-01/internal/metrics"
	"github.com/blackmann/home-archive-2022-01/internal/sass"
)

// Builder runs full builds for one configuration. Run is not safe for
// concurrent use; the watch loop serializes calls.
type Builder struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	markdown content.MarkdownRenderer
	compiler assets.Compiler
	registry *prom.Registry
}

// Option customizes a Builder.
type Option func(*Builder)

// WithLogger sets the base logger; each run adds its build_id.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithCompiler replaces the Dart Sass compiler.
func WithCompiler(c assets.Compiler) Option { return func(b *Builder) { b.compiler = c } }

// WithMarkdown replaces the markdown renderer.
func WithMarkdown(m content.MarkdownRenderer) Option { return func(b *Builder) { b.markdown = m } }

// New creates a Builder. When cfg.Build.MetricsFile is set and no recorder is
// given, a Prometheus recorder is created and written to that file after
// every run.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{cfg: cfg}
	for _, o := range opts {
		o(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.markdown == nil {
		b.markdown = markdown.NewConverter(markdown.RenderOptions{
			Tables: cfg.Render.Tables == nil || *cfg.Render.Tables,
			Unsafe: cfg.Render.UnsafeHTML == nil || *cfg.Render.UnsafeHTML,
		})
	}
	if b.compiler == nil {
		b.compiler = sass.New(sass.Options{
			Binary:       cfg.Sass.Binary,
			IncludePaths: cfg.Sass.IncludePaths,
			Timeout:      cfg.Sass.Timeout,
		})
	}
	if b.recorder == nil {
		if cfg.Build.MetricsFile != "" {
			b.registry = prom.NewRegistry()
			b.recorder = metrics.NewPrometheusRecorder(b.registry)
		} else {
			b.recorder = metrics.NoopRecorder{}
		}
	}
	return b
}

// Config returns the configuration the Builder was created with.
func (b *Builder) Config() *config.Config { return b.cfg }

// Run performs one full build. All in-memory content is reloaded; nothing is
// carried over from previous runs.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	buildID := uuid.NewString()
	logger := b.logger.With(logfields.BuildID(buildID))
	report := newReport(buildID)

	st := &State{
		Config:   b.cfg,
		Logger:   logger,
		Recorder: b.recorder,
		Report:   report,
		markdown: b.markdown,
		compiler: b.compiler,
	}

	logger.Info("Build started", logfields.Path(b.cfg.Root))
	err := runStages(ctx, st, Pipeline())
	report.finish(err)

	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(report.Outcome)
	b.writeMetrics(logger)

	if err != nil {
		logger.Error("Build failed",
			logfields.Stage(string(report.FailedStage)),
			logfields.Error(err))
		return report, err
	}
	logger.Info("Build finished",
		logfields.DurationMS(float64(report.Duration().Microseconds())/1000),
		"pages", report.PagesWritten)
	return report, nil
}

func (b *Builder) writeMetrics(logger *slog.Logger) {
	if b.registry == nil || b.cfg.Build.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(b.registry, b.cfg.Build.MetricsFile); err != nil {
		logger.Warn("Failed to write metrics", logfields.Error(err))
	}
}

// Close releases the style-sheet compiler.
func (b *Builder) Close() error {
	if c, ok := b.compiler.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
