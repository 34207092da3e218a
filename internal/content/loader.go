package content

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/frontmatter"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
)

// Output namespaces below the output root.
const (
	PostsNamespace       = "posts"
	ExperimentsNamespace = "experiments"
)

// Bundle file names inside an experiment directory.
const (
	ManifestFile = "manifest.json"
	PreviewFile  = "index.html"
	NotesFile    = "README.md"
)

// PostExtension selects post sources in the posts directory.
const PostExtension = ".md"

// MarkdownRenderer converts a markdown document (front matter included) to HTML.
type MarkdownRenderer interface {
	Render(source []byte) (string, error)
}

// Loader reads posts and experiment bundles from disk.
type Loader struct {
	markdown MarkdownRenderer
	logger   *slog.Logger
}

// NewLoader creates a Loader that renders markdown through md.
func NewLoader(md MarkdownRenderer, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{markdown: md, logger: logger}
}

// LoadPosts loads every regular `*.md` file directly inside dir, in filename order.
func (l *Loader) LoadPosts(dir string) ([]*Post, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read posts directory").
			Fatal().WithContext("path", dir).Build()
	}

	posts := make([]*Post, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), PostExtension) {
			continue
		}
		post, err := l.LoadPost(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	l.logger.Debug("Loaded posts", logfields.Path(dir), logfields.Count(len(posts)))
	return posts, nil
}

// LoadPost reads and renders a single post file.
//
// A file without front matter yields a Post with nil Meta. Malformed front matter
// is a source error.
func (l *Loader) LoadPost(file string) (*Post, error) {
	// #nosec G304 -- file comes from enumerating the configured posts directory
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read post").
			Fatal().WithContext("path", file).Build()
	}

	block, body, had, err := frontmatter.Split(source)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySource, "malformed front matter").
			Fatal().WithContext("path", file).Build()
	}

	html, err := l.markdown.Render(source)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryMarkdown, "render post").
			Fatal().WithContext("path", file).Build()
	}

	post := &Post{
		RawContent:  html,
		SourcePath:  file,
		Fingerprint: mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(block), "\n"), string(body)),
	}
	if had {
		meta, err := frontmatter.ParsePostMeta(block)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategorySource, "malformed front matter").
				Fatal().WithContext("path", file).Build()
		}
		post.Meta = &meta
	} else {
		l.logger.Warn("Post has no front matter", logfields.Path(file))
	}
	return post, nil
}

// LoadExperiments loads every immediate subdirectory of dir as an experiment
// bundle, in directory-name order. Experiment slugs must be unique.
func (l *Loader) LoadExperiments(dir string) ([]*Experiment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read experiments directory").
			Fatal().WithContext("path", dir).Build()
	}

	var experiments []*Experiment
	seen := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		exp, err := l.LoadExperiment(dir, entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[exp.Meta.Slug]; dup {
			return nil, ferrors.SourceError("duplicate experiment slug").
				WithContextMap(ferrors.ErrorContext{
					"slug":    exp.Meta.Slug,
					"bundles": prev + "," + entry.Name(),
				}).
				Build()
		}
		seen[exp.Meta.Slug] = entry.Name()
		experiments = append(experiments, exp)
	}

	l.logger.Debug("Loaded experiments", logfields.Path(dir), logfields.Count(len(experiments)))
	return experiments, nil
}

// LoadExperiment loads the bundle in dir/bundle.
func (l *Loader) LoadExperiment(dir, bundle string) (*Experiment, error) {
	bundleDir := filepath.Join(dir, bundle)

	manifestPath := filepath.Join(bundleDir, ManifestFile)
	raw, err := readFile(manifestPath)
	if err != nil {
		return nil, err
	}
	var meta ExperimentMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySource, "invalid experiment manifest").
			Fatal().WithContext("path", manifestPath).Build()
	}
	if meta.Slug == "" {
		return nil, ferrors.SourceError("experiment manifest has no slug").
			WithContext("path", manifestPath).Build()
	}

	assets := make([]Asset, 0, len(meta.Assets))
	rewritten := make([]string, 0, len(meta.Assets))
	for _, declared := range meta.Assets {
		if !filepath.IsLocal(filepath.FromSlash(declared)) {
			return nil, ferrors.SourceError("experiment asset escapes its bundle").
				WithContext("path", manifestPath).
				WithContext("asset", declared).
				Build()
		}
		out := path.Join(ExperimentsNamespace, bundle, filepath.ToSlash(declared))
		assets = append(assets, Asset{Source: filepath.Join(bundleDir, filepath.FromSlash(declared)), Output: out})
		rewritten = append(rewritten, out)
	}
	meta.Assets = rewritten
	if len(rewritten) > 0 && meta.Slug != bundle {
		l.logger.Warn("Experiment slug differs from its bundle directory; assets are published under the bundle name",
			logfields.Slug(meta.Slug),
			logfields.Path(path.Join(ExperimentsNamespace, bundle)))
	}

	previewPath := filepath.Join(bundleDir, PreviewFile)
	preview, err := readFile(previewPath)
	if err != nil {
		return nil, err
	}
	markup, err := ExtractFragment(bytes.NewReader(preview), MainSelector)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySource, "missing <main> fragment").
			Fatal().WithContext("path", previewPath).Build()
	}

	notesPath := filepath.Join(bundleDir, NotesFile)
	notesSource, err := readFile(notesPath)
	if err != nil {
		return nil, err
	}
	notes, err := l.markdown.Render(notesSource)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryMarkdown, "render experiment notes").
			Fatal().WithContext("path", notesPath).Build()
	}

	return &Experiment{
		Meta:   meta,
		Markup: markup,
		Notes:  notes,
		Bundle: bundle,
		Assets: assets,
	}, nil
}

func readFile(file string) ([]byte, error) {
	// #nosec G304 -- paths are derived from the configured source directories
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read file").
			Fatal().WithContext("path", file).Build()
	}
	return data, nil
}
