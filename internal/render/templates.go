// Package render composes site pages from Liquid layouts.
//
// Every page is rendered twice: a page-type layout (home, post or experiment)
// produces the content, which the shared main layout then wraps.
package render

import (
	"os"
	"path/filepath"

	"github.com/osteele/liquid"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// Layout names, resolved as <layouts dir>/<name><extension>.
const (
	LayoutHome       = "home"
	LayoutPost       = "post"
	LayoutExperiment = "experiment"
	LayoutMain       = "main"
)

// DefaultExtension is the layout file extension used when none is configured.
const DefaultExtension = ".liquid"

// Templates holds the parsed layouts for one build.
type Templates struct {
	Home       *liquid.Template
	Post       *liquid.Template
	Experiment *liquid.Template
	Main       *liquid.Template
}

// LoadTemplates reads and parses the four layouts from dir.
func LoadTemplates(engine *liquid.Engine, dir, ext string) (*Templates, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	load := func(name string) (*liquid.Template, error) {
		file := filepath.Join(dir, name+ext)
		// #nosec G304 -- layout paths are fixed names below the configured layouts directory
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read layout").
				Fatal().WithContext("path", file).Build()
		}
		tpl, perr := engine.ParseTemplate(src)
		if perr != nil {
			return nil, ferrors.WrapError(perr, ferrors.CategoryTemplate, "parse layout").
				Fatal().WithContext("path", file).Build()
		}
		return tpl, nil
	}

	var (
		t   Templates
		err error
	)
	if t.Home, err = load(LayoutHome); err != nil {
		return nil, err
	}
	if t.Post, err = load(LayoutPost); err != nil {
		return nil, err
	}
	if t.Experiment, err = load(LayoutExperiment); err != nil {
		return nil, err
	}
	if t.Main, err = load(LayoutMain); err != nil {
		return nil, err
	}
	return &t, nil
}
