package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/blackmann/home-archive-2022-01/internal/assets"
	"github.com/blackmann/home-archive-2022-01/internal/content"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/index"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
	"github.com/blackmann/home-archive-2022-01/internal/render"
)

// Page kinds reported to the metrics recorder.
const (
	kindHome       = "home"
	kindPost       = "post"
	kindExperiment = "experiment"
	kindAsset      = "asset"
)

// stageLoadContent reads posts, experiments and layouts, and indexes the posts.
func stageLoadContent(_ context.Context, st *State) error {
	cfg := st.Config
	loader := content.NewLoader(st.markdown, st.Logger)

	posts, err := loader.LoadPosts(cfg.Paths.Posts)
	if err != nil {
		return err
	}
	experiments, err := loader.LoadExperiments(cfg.Paths.Experiments)
	if err != nil {
		return err
	}
	idx, err := index.New(posts)
	if err != nil {
		return err
	}
	composer, err := render.NewComposer(render.Options{
		LayoutsDir:      cfg.Paths.Layouts,
		Extension:       cfg.Render.LayoutExtension,
		StrictVariables: cfg.Render.StrictVariables,
	}, st.Logger)
	if err != nil {
		return err
	}

	st.Posts = posts
	st.Experiments = experiments
	st.Index = idx
	st.Composer = composer
	st.Report.Posts = len(posts)
	st.Report.Experiments = len(experiments)
	st.Logger.Info("Loaded content", logfields.Count(len(posts)), "experiments", len(experiments))
	return nil
}

// stagePrepareOutput creates the output root, removing it first when clean
// builds are enabled.
func stagePrepareOutput(_ context.Context, st *State) error {
	out := st.Config.Paths.Output
	if st.Config.Build.Clean {
		if err := os.RemoveAll(out); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "clean output directory").
				Fatal().WithContext("path", out).Build()
		}
		st.Logger.Info("Cleaned output directory", logfields.Path(out))
	}
	if err := os.MkdirAll(out, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			Fatal().WithContext("path", out).Build()
	}
	return nil
}

func stageRenderHome(_ context.Context, st *State) error {
	page, err := st.Composer.RenderHome(st.Index.Posts())
	if err != nil {
		return err
	}
	return st.writePage(kindHome, page)
}

func stageRenderPosts(ctx context.Context, st *State) error {
	for i := range st.Index.Len() {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := st.Composer.RenderPost(st.Index, i)
		if err != nil {
			return err
		}
		if err := st.writePage(kindPost, page); err != nil {
			return err
		}
	}
	return nil
}

func stageRenderExperiments(ctx context.Context, st *State) error {
	for _, exp := range st.Experiments {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := st.Composer.RenderExperiment(st.Experiments, exp)
		if err != nil {
			return err
		}
		if err := st.writePage(kindExperiment, page); err != nil {
			return err
		}
	}
	return nil
}

// stageCopyAssets mirrors the asset tree into static/ and copies the files
// declared by experiment manifests.
func stageCopyAssets(ctx context.Context, st *State) error {
	pipeline := &assets.Pipeline{
		SourceDir: st.Config.Paths.Assets,
		OutputDir: st.Config.Paths.Output,
		Compiler:  st.compiler,
		Logger:    st.Logger,

		EmitPartials: st.Config.Sass.EmitPartials,
	}
	res, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	st.Report.StylesCompiled = res.Compiled
	st.Report.AssetsCopied = res.Copied

	n, err := assets.CopyExperimentAssets(ctx, st.Config.Paths.Output, st.Experiments)
	if err != nil {
		return err
	}
	st.Report.ExperimentAssets = n
	st.Recorder.AddPagesWritten(kindAsset, res.Compiled+res.Copied+n)
	st.Logger.Info("Packed assets",
		"compiled", res.Compiled, "copied", res.Copied, "experiment_assets", n)
	return nil
}

func (st *State) writePage(kind string, page render.Page) error {
	full, err := render.WritePage(st.Config.Paths.Output, page)
	if err != nil {
		return err
	}
	st.Report.PagesWritten++
	st.Recorder.AddPagesWritten(kind, 1)
	rel, relErr := filepath.Rel(st.Config.Root, full)
	if relErr != nil {
		rel = full
	}
	st.Logger.Info("Written "+kind, logfields.Path(rel))
	return nil
}
