// Package markdown renders post bodies and experiment notes to HTML.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/frontmatter"
)

// RenderOptions selects the goldmark features used for site content.
type RenderOptions struct {
	// Tables enables the GFM table extension.
	Tables bool
	// Unsafe passes raw HTML embedded in markdown through to the output.
	Unsafe bool
}

// DefaultRenderOptions matches what posts and experiment notes are written against.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Tables: true, Unsafe: true}
}

// Converter turns markdown into HTML. It is safe for sequential reuse across files.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter builds a Converter for the given options.
func NewConverter(opts RenderOptions) *Converter {
	var exts []goldmark.Extender
	if opts.Tables {
		exts = append(exts, extension.Table)
	}
	var rendererOpts []goldmark.Option
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}
	return &Converter{md: goldmark.New(append(rendererOpts, goldmark.WithExtensions(exts...))...)}
}

// Render converts a markdown document to HTML. A leading front matter block is
// stripped and never rendered.
func (c *Converter) Render(source []byte) (string, error) {
	_, body, _, err := frontmatter.Split(source)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryMarkdown, "split front matter").Fatal().Build()
	}

	var buf bytes.Buffer
	if err := c.md.Convert(body, &buf); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryMarkdown, "convert markdown").Fatal().Build()
	}
	return buf.String(), nil
}
