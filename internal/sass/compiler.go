// Package sass compiles SCSS and indented Sass through the embedded Dart Sass
// protocol.
package sass

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// DefaultTimeout bounds a single compilation.
const DefaultTimeout = 30 * time.Second

// Options configures the Dart Sass process.
type Options struct {
	// Binary is the dart-sass executable. Empty means "sass" on PATH.
	Binary string
	// IncludePaths are searched for @use and @import after the source's own directory.
	IncludePaths []string
	Timeout      time.Duration
}

// Compiler compiles style sheets. The Dart Sass process is started on first
// use and reused until Close.
type Compiler struct {
	opts Options

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

// New returns a Compiler that has not started Dart Sass yet.
func New(opts Options) *Compiler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Compiler{opts: opts}
}

func (c *Compiler) start() (*godartsass.Transpiler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transpiler != nil {
		return c.transpiler, nil
	}
	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: c.opts.Binary,
		Timeout:                  c.opts.Timeout,
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStylesheet, "start dart sass").
			Fatal().WithContext("binary", c.opts.Binary).Build()
	}
	c.transpiler = t
	return t, nil
}

// Compile compiles file and returns the expanded CSS.
func (c *Compiler) Compile(ctx context.Context, file string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// #nosec G304 -- file comes from walking the configured asset directory
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read style sheet").
			Fatal().WithContext("path", file).Build()
	}

	t, err := c.start()
	if err != nil {
		return nil, err
	}

	syntax := godartsass.SourceSyntaxSCSS
	if strings.EqualFold(filepath.Ext(file), ".sass") {
		syntax = godartsass.SourceSyntaxSASS
	}

	res, err := t.Execute(godartsass.Args{
		Source:       string(src),
		SourceSyntax: syntax,
		OutputStyle:  godartsass.OutputStyleExpanded,
		IncludePaths: append([]string{filepath.Dir(file)}, c.opts.IncludePaths...),
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStylesheet, "compile").
			Fatal().WithContext("path", file).Build()
	}
	return []byte(res.CSS), nil
}

// Close stops the Dart Sass process if it was started.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transpiler == nil {
		return nil
	}
	err := c.transpiler.Close()
	c.transpiler = nil
	return err
}
