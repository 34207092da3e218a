package render

import (
	"fmt"
	"log/slog"

	"github.com/osteele/liquid"

	"github.com/blackmann/home-archive-2022-01/internal/content"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/index"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
)

// HomeTitle is the shell title of the home page.
const HomeTitle = "Welcome"

// Page is one rendered output document.
type Page struct {
	// Output is the slash-separated file path below the output root.
	Output string
	// Path is the site path passed to the main layout.
	Path  string
	Title string
	HTML  string
}

// Options configures a Composer.
type Options struct {
	// LayoutsDir holds home, post, experiment and main layouts.
	LayoutsDir string
	// Extension is the layout file extension (default ".liquid").
	Extension string
	// StrictVariables fails a render that references an undefined variable.
	StrictVariables bool
}

// Composer renders pages for a single build.
type Composer struct {
	templates *Templates
	logger    *slog.Logger
}

// NewComposer parses the layouts once for the lifetime of the Composer.
func NewComposer(opts Options, logger *slog.Logger) (*Composer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	engine := liquid.NewEngine()
	if opts.StrictVariables {
		engine.StrictVariables()
	}
	templates, err := LoadTemplates(engine, opts.LayoutsDir, opts.Extension)
	if err != nil {
		return nil, err
	}
	return &Composer{templates: templates, logger: logger}, nil
}

// RenderHome renders the root index from the sorted post collection.
func (c *Composer) RenderHome(posts []*content.Post) (Page, error) {
	page := Page{Output: "index.html", Path: "", Title: HomeTitle}
	inner, err := c.render(c.templates.Home, LayoutHome, page.Output, liquid.Bindings{
		"posts": postValues(posts),
	})
	if err != nil {
		return Page{}, err
	}
	return c.wrap(page, liquid.Bindings{
		"content":     inner,
		"description": "",
		"title":       HomeTitle,
		"path":        page.Path,
	})
}

// RenderPost renders the post at position in idx, embedding its related-posts
// window and resolved successor.
func (c *Composer) RenderPost(idx *index.Index, position int) (Page, error) {
	post := idx.At(position)
	meta := post.Meta

	next, err := idx.ResolveNext(meta.Next)
	if err != nil {
		return Page{}, ferrors.WrapError(err, ferrors.CategorySource, "resolve next post").
			Fatal().WithContext("path", post.SourcePath).Build()
	}
	if next != nil {
		c.logger.Info("Linked next post", logfields.Slug(meta.Slug),
			slog.String("next", next.Slug), slog.String("next_title", next.Title))
	}

	page := Page{
		Output: fmt.Sprintf("%s/%s.html", content.PostsNamespace, meta.Slug),
		Path:   fmt.Sprintf("/%s/%s.html", content.PostsNamespace, meta.Slug),
		Title:  meta.Title,
	}
	inner, err := c.render(c.templates.Post, LayoutPost, page.Output, liquid.Bindings{
		"date":        meta.Date.Format(DisplayDateLayout),
		"title":       meta.Title,
		"content":     post.RawContent,
		"posts":       postValues(idx.Related(position)),
		"slug":        meta.Slug,
		"next_post":   nextPostValue(next),
		"fingerprint": post.Fingerprint,
	})
	if err != nil {
		return Page{}, err
	}
	return c.wrap(page, liquid.Bindings{
		"content":     inner,
		"description": meta.Description,
		"title":       meta.Title,
		"title_meta":  optional(meta.TitleMeta),
		"show_home":   true,
		"path":        page.Path,
	})
}

// RenderExperiment renders one experiment page. all is the full experiment
// collection exposed to the experiment layout.
func (c *Composer) RenderExperiment(all []*content.Experiment, exp *content.Experiment) (Page, error) {
	experiments := make([]map[string]any, len(all))
	for i, e := range all {
		experiments[i] = experimentValue(e)
	}

	page := Page{
		Output: fmt.Sprintf("%s/%s/index.html", content.ExperimentsNamespace, exp.Meta.Slug),
		Path:   fmt.Sprintf("/%s/%s", content.ExperimentsNamespace, exp.Meta.Slug),
		Title:  exp.Meta.Title,
	}
	inner, err := c.render(c.templates.Experiment, LayoutExperiment, page.Output, liquid.Bindings{
		"experiments":       experiments,
		"experiment_markup": exp.Markup,
		"notes":             exp.Notes,
		"slug":              exp.Meta.Slug,
		"description":       exp.Meta.Description,
		"title":             exp.Meta.Title,
	})
	if err != nil {
		return Page{}, err
	}
	return c.wrap(page, liquid.Bindings{
		"content":     inner,
		"description": exp.Meta.Description,
		"title":       exp.Meta.Title,
		"show_home":   true,
		"path":        page.Path,
		"scripts":     stringsValue(exp.Meta.Scripts),
		"styles":      stringsValue(exp.Meta.Styles),
	})
}

func (c *Composer) wrap(page Page, bindings liquid.Bindings) (Page, error) {
	html, err := c.render(c.templates.Main, LayoutMain, page.Output, bindings)
	if err != nil {
		return Page{}, err
	}
	page.HTML = html
	return page, nil
}

func (c *Composer) render(tpl *liquid.Template, layout, output string, bindings liquid.Bindings) (string, error) {
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryTemplate, "render layout").
			Fatal().
			WithContext("template", layout).
			WithContext("page", output).
			Build()
	}
	return out, nil
}
