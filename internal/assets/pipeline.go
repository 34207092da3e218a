// Package assets mirrors the static asset tree into the output and copies
// experiment-owned files.
package assets

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackmann/home-archive-2022-01/internal/content"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
)

// StaticNamespace is the output directory that mirrors the asset tree.
const StaticNamespace = "static"

// Compiler turns a style-sheet source file into CSS.
type Compiler interface {
	Compile(ctx context.Context, file string) ([]byte, error)
}

// Result counts the files a pipeline run produced.
type Result struct {
	Compiled int
	Copied   int
}

// Pipeline mirrors SourceDir into <OutputDir>/static.
type Pipeline struct {
	SourceDir string
	OutputDir string
	Compiler  Compiler
	Logger    *slog.Logger
	// EmitPartials compiles Sass partials (_name.scss) to their own CSS
	// files as well. Off by default: partials usually do not compile alone.
	EmitPartials bool
}

// IsStylesheet reports whether name is a compilable style-sheet source.
func IsStylesheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".scss", ".sass":
		return true
	}
	return false
}

// IsPartial reports whether name is a Sass partial, which is only compiled
// through the sheets that import it.
func IsPartial(name string) bool {
	return IsStylesheet(name) && strings.HasPrefix(name, "_")
}

// CSSName replaces the style-sheet extension of name with .css.
func CSSName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".css"
}

// Run walks the asset tree, following symlinks. A missing asset directory is
// not an error; a dangling link or any read, compile or write failure aborts
// the run.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	var res Result
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(p.SourceDir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("No asset directory", logfields.Path(p.SourceDir))
		return res, nil
	}
	if err != nil {
		return res, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat asset directory").
			Fatal().WithContext("path", p.SourceDir).Build()
	}
	if !info.IsDir() {
		return res, ferrors.FileSystemError("asset path is not a directory").
			WithContext("path", p.SourceDir).Build()
	}

	root, err := filepath.EvalSymlinks(p.SourceDir)
	if err != nil {
		return res, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve asset directory").
			Fatal().WithContext("path", p.SourceDir).Build()
	}
	w := &walker{p: p, logger: logger, res: &res, active: map[string]bool{root: true}}
	err = w.walk(ctx, root, filepath.Join(p.OutputDir, StaticNamespace))
	return res, err
}

// walker mirrors one directory tree, following symlinks. active holds the
// resolved directories currently being walked so a link back into one of
// them is reported instead of recursing forever.
type walker struct {
	p      *Pipeline
	logger *slog.Logger
	res    *Result
	active map[string]bool
}

func (w *walker) walk(ctx context.Context, srcDir, outDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return ferrors.WrapError(walkErr, ferrors.CategoryFileSystem, "walk assets").
				Fatal().WithContext("path", path).Build()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryInternal, "relative asset path").Build()
		}
		target := filepath.Join(outDir, rel)

		if d.IsDir() {
			return mkdirAsset(target)
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return w.followLink(ctx, path, target)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return w.file(ctx, path, target)
	})
}

func (w *walker) followLink(ctx context.Context, path, target string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve asset symlink").
			Fatal().WithContext("path", path).Build()
	}
	switch {
	case info.IsDir():
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve asset symlink").
				Fatal().WithContext("path", path).Build()
		}
		if w.active[resolved] {
			return ferrors.FileSystemError("asset symlink loops back into its own tree").
				WithContext("path", path).WithContext("target", resolved).Build()
		}
		w.active[resolved] = true
		defer delete(w.active, resolved)
		return w.walk(ctx, resolved, target)
	case info.Mode().IsRegular():
		return w.file(ctx, path, target)
	default:
		return nil
	}
}

func (w *walker) file(ctx context.Context, path, target string) error {
	name := filepath.Base(path)
	switch {
	case IsPartial(name) && !w.p.EmitPartials:
		return nil
	case IsStylesheet(name):
		if w.p.Compiler == nil {
			return ferrors.StylesheetError("no style-sheet compiler configured").
				WithContext("path", path).Build()
		}
		css, err := w.p.Compiler.Compile(ctx, path)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryStylesheet, "compile style sheet").
				Fatal().WithContext("path", path).Build()
		}
		out := filepath.Join(filepath.Dir(target), CSSName(name))
		// #nosec G306 -- site output is world-readable
		if err := os.WriteFile(out, css, 0o644); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write style sheet").
				Fatal().WithContext("path", out).Build()
		}
		w.res.Compiled++
		w.logger.Debug("Compiled style sheet", logfields.Path(path))
	default:
		if err := CopyFile(path, target); err != nil {
			return err
		}
		w.res.Copied++
	}
	return nil
}

func mkdirAsset(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create asset directory").
			Fatal().WithContext("path", dir).Build()
	}
	return nil
}

// CopyExperimentAssets copies every declared experiment asset to its
// output-relative location below outDir.
func CopyExperimentAssets(ctx context.Context, outDir string, experiments []*content.Experiment) (int, error) {
	copied := 0
	for _, exp := range experiments {
		for _, asset := range exp.Assets {
			if err := ctx.Err(); err != nil {
				return copied, err
			}
			dst := filepath.Join(outDir, filepath.FromSlash(asset.Output))
			if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
				return copied, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create asset directory").
					Fatal().WithContext("path", filepath.Dir(dst)).Build()
			}
			if err := CopyFile(asset.Source, dst); err != nil {
				return copied, err
			}
			copied++
		}
	}
	return copied, nil
}

// CopyFile copies src to dst byte for byte, replacing dst.
func CopyFile(src, dst string) error {
	// #nosec G304 -- src comes from walking a configured source directory
	in, err := os.Open(src)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "open asset").
			Fatal().WithContext("path", src).Build()
	}
	defer func() { _ = in.Close() }()

	// #nosec G304 -- dst is below the configured output directory
	out, err := os.Create(dst)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create asset").
			Fatal().WithContext("path", dst).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "copy asset").
			Fatal().WithContext("path", dst).Build()
	}
	if err := out.Close(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "close asset").
			Fatal().WithContext("path", dst).Build()
	}
	return nil
}
