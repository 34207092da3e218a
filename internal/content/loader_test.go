package content

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/markdown"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newTestLoader() *Loader {
	return NewLoader(markdown.NewConverter(markdown.DefaultRenderOptions()), nil)
}

func TestLoadPosts_ParsesFrontMatterAndBody(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.md"), "---\ntitle: B\nslug: b\ndate: 01-02-2023\n---\n# Bee\n")
	writeFile(t, filepath.Join(dir, "a.md"), "---\ntitle: A\nslug: a\ndate: 01-01-2023\nnext: b\n---\nHello *world*\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "drafts.md"), 0o750))

	posts, err := newTestLoader().LoadPosts(dir)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	a := posts[0]
	require.Equal(t, "a", a.Slug())
	require.Equal(t, "A", a.Meta.Title)
	require.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), a.Meta.Date)
	require.NotNil(t, a.Meta.Next)
	require.Equal(t, "b", *a.Meta.Next)
	require.Equal(t, "<p>Hello <em>world</em></p>\n", a.RawContent)
	require.NotEmpty(t, a.Fingerprint)
	require.Equal(t, filepath.Join(dir, "a.md"), a.SourcePath)

	require.Equal(t, "<h1>Bee</h1>\n", posts[1].RawContent)
}

func TestLoadPost_NoFrontMatterLeavesMetaNil(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain.md"), "# Just a body\n")

	post, err := newTestLoader().LoadPost(filepath.Join(dir, "plain.md"))
	require.NoError(t, err)
	require.Nil(t, post.Meta)
	require.Empty(t, post.Slug())
	require.Contains(t, post.RawContent, "Just a body")
}

func TestLoadPost_MalformedFrontMatterIsSourceError(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad-date.md": "---\nslug: x\ndate: 2023-01\n---\nbody\n",
		"no-colon.md": "---\nslug x\n---\nbody\n",
		"unclosed.md": "---\nslug: x\nbody\n",
	}
	for name, src := range cases {
		writeFile(t, filepath.Join(dir, name), src)
		_, err := newTestLoader().LoadPost(filepath.Join(dir, name))
		require.Error(t, err, name)
		require.True(t, ferrors.HasCategory(err, ferrors.CategorySource), name)
	}
}

func TestLoadPost_FingerprintTracksContent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.md")
	writeFile(t, file, "---\nslug: a\n---\nbody\n")

	first, err := newTestLoader().LoadPost(file)
	require.NoError(t, err)
	again, err := newTestLoader().LoadPost(file)
	require.NoError(t, err)
	require.Equal(t, first.Fingerprint, again.Fingerprint)

	writeFile(t, file, "---\nslug: a\n---\nchanged body\n")
	changed, err := newTestLoader().LoadPost(file)
	require.NoError(t, err)
	require.NotEqual(t, first.Fingerprint, changed.Fingerprint)
}

func TestLoadPosts_MissingDirectory(t *testing.T) {
	_, err := newTestLoader().LoadPosts(filepath.Join(t.TempDir(), "nope"))
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func writeBundle(t *testing.T, root, bundle, manifest, preview string) {
	t.Helper()
	dir := filepath.Join(root, bundle)
	writeFile(t, filepath.Join(dir, ManifestFile), manifest)
	writeFile(t, filepath.Join(dir, PreviewFile), preview)
	writeFile(t, filepath.Join(dir, NotesFile), "Some **notes**\n")
}

func TestLoadExperiments_LoadsBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "lyrics",
		`{"title":"Synced lyrics","slug":"synced-lyrics","description":"d","assets":["style.css","data/song.json"],"styles":["style.css"],"scripts":["main.js"],"prepack":null}`,
		`<html><body><header>x</header><main id="app"><p>hi</p></main><main>second</main></body></html>`)
	writeFile(t, filepath.Join(root, "stray.txt"), "not a bundle")

	exps, err := newTestLoader().LoadExperiments(root)
	require.NoError(t, err)
	require.Len(t, exps, 1)

	e := exps[0]
	require.Equal(t, "synced-lyrics", e.Meta.Slug)
	require.Equal(t, "lyrics", e.Bundle)
	require.Equal(t, []string{"experiments/lyrics/style.css", "experiments/lyrics/data/song.json"}, e.Meta.Assets)
	require.Equal(t, []string{"style.css"}, e.Meta.Styles)
	require.Equal(t, []string{"main.js"}, e.Meta.Scripts)
	require.Nil(t, e.Meta.Prepack)
	require.Equal(t, `<main id="app"><p>hi</p></main>`, e.Markup)
	require.Equal(t, "<p>Some <strong>notes</strong></p>\n", e.Notes)
	require.Equal(t, filepath.Join(root, "lyrics", "data", "song.json"), e.Assets[1].Source)
	require.Equal(t, "experiments/lyrics/data/song.json", e.Assets[1].Output)
}

func TestLoadExperiments_MissingMainIsSourceError(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "x", `{"title":"X","slug":"x"}`, `<html><body><div>no main</div></body></html>`)

	_, err := newTestLoader().LoadExperiments(root)
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategorySource))
	require.ErrorIs(t, err, ErrFragmentNotFound)
}

func TestLoadExperiments_Rejections(t *testing.T) {
	page := `<main>m</main>`

	t.Run("duplicate slug", func(t *testing.T) {
		root := t.TempDir()
		writeBundle(t, root, "one", `{"slug":"same"}`, page)
		writeBundle(t, root, "two", `{"slug":"same"}`, page)
		_, err := newTestLoader().LoadExperiments(root)
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate experiment slug")
		ce, ok := ferrors.AsClassified(err)
		require.True(t, ok)
		slug, _ := ce.Context().GetString("slug")
		require.Equal(t, "same", slug)
		bundles, _ := ce.Context().GetString("bundles")
		require.Equal(t, "one,two", bundles)
	})

	t.Run("asset escaping bundle", func(t *testing.T) {
		root := t.TempDir()
		writeBundle(t, root, "one", `{"slug":"one","assets":["../../etc/passwd"]}`, page)
		_, err := newTestLoader().LoadExperiments(root)
		require.Error(t, err)
		require.True(t, strings.Contains(err.Error(), "escapes"))
	})

	t.Run("invalid manifest", func(t *testing.T) {
		root := t.TempDir()
		writeBundle(t, root, "one", `{"slug":`, page)
		_, err := newTestLoader().LoadExperiments(root)
		require.True(t, ferrors.HasCategory(err, ferrors.CategorySource))
	})

	t.Run("missing readme", func(t *testing.T) {
		root := t.TempDir()
		writeBundle(t, root, "one", `{"slug":"one"}`, page)
		require.NoError(t, os.Remove(filepath.Join(root, "one", NotesFile)))
		_, err := newTestLoader().LoadExperiments(root)
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	})
}

func TestLoadExperiment_WarnsWhenSlugDiffersFromBundle(t *testing.T) {
	root := t.TempDir()
	writeBundle(t, root, "lyrics", `{"slug":"synced-lyrics","assets":["main.js"],"scripts":["main.js"]}`, `<main>m</main>`)
	writeFile(t, filepath.Join(root, "lyrics", "main.js"), "")
	writeBundle(t, root, "clock", `{"slug":"clock","assets":["clock.js"]}`, `<main>m</main>`)
	writeBundle(t, root, "plain", `{"slug":"bare"}`, `<main>m</main>`)

	var logs bytes.Buffer
	loader := NewLoader(markdown.NewConverter(markdown.DefaultRenderOptions()),
		slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})))

	exps, err := loader.LoadExperiments(root)
	require.NoError(t, err)
	require.Len(t, exps, 3)
	require.Equal(t, 1, strings.Count(logs.String(), "Experiment slug differs"))
	require.Contains(t, logs.String(), "slug=synced-lyrics")
	require.Contains(t, logs.String(), "path=experiments/lyrics")
}
