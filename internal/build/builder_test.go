package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/blackmann/home-archive-2022-01/internal/config"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/metrics"
	"github.com/blackmann/home-archive-2022-01/internal/testutil/testutils"
)

type fakeCompiler struct{ err error }

func (f fakeCompiler) Compile(_ context.Context, file string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("/* compiled " + filepath.Base(file) + " */\n"), nil
}

var siteFixture = map[string]string{
	"posts/first.md":  "---\ntitle: First\nslug: a\ndate: 01-01-2023\nnext: b\ndescription: the first\n---\nHello from **a**\n",
	"posts/second.md": "---\ntitle: Second\nslug: b\ndate: 01-02-2023\n---\nHello from b\n",
	"posts/third.md":  "---\ntitle: Third\nslug: c\ndate: 01-03-2023\ndraft: true\n---\n| x |\n|---|\n| 1 |\n",

	"experiments/lyrics/manifest.json": `{"title":"Synced lyrics","slug":"synced-lyrics","description":"karaoke","assets":["main.js"],"styles":["/static/css/lyrics.css"],"scripts":["/experiments/lyrics/main.js"]}`,
	"experiments/lyrics/index.html":    `<html><body><main><div id="lyrics"></div></main></body></html>`,
	"experiments/lyrics/README.md":     "Notes about lyrics\n",
	"experiments/lyrics/main.js":       "console.log('lyrics')\n",

	"layouts/main.liquid":       `<html><head><title>{{ title }}</title>{% for s in styles %}<link rel="stylesheet" href="{{ s }}">{% endfor %}</head><body data-path="{{ path }}">{% if show_home %}<a href="/">Home</a>{% endif %}{{ content }}{% for s in scripts %}<script src="{{ s }}"></script>{% endfor %}</body></html>`,
	"layouts/home.liquid":       `<ul>{% for post in posts %}<li><a href="/posts/{{ post.meta.slug }}.html">{{ post.meta.title }}</a></li>{% endfor %}</ul>`,
	"layouts/post.liquid":       `<article><h1>{{ title }}</h1><time>{{ date }}</time>{{ content }}</article>{% if next_post %}<a class="next" href="/posts/{{ next_post.slug }}.html">{{ next_post.title }}</a>{% endif %}<aside>{% for post in posts %}{{ post.meta.slug }} {% endfor %}</aside>`,
	"layouts/experiment.liquid": `<h1>{{ title }}</h1>{{ experiment_markup }}<section>{{ notes }}</section>`,

	"assets/css/site.scss":  "body { color: red; }\n",
	"assets/css/_vars.scss": "$c: red;\n",
	"assets/js/main.js":     "console.log('site')\n",
}

func newFixture(t *testing.T, overrides map[string]string) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	testutils.WriteTree(t, root, siteFixture)
	testutils.WriteTree(t, root, overrides)
	cfg, err := config.Default(root)
	require.NoError(t, err)
	return cfg, cfg.Paths.Output
}

func TestRun_BuildsSite(t *testing.T) {
	cfg, out := newFixture(t, nil)
	rec := prom.NewRegistry()
	b := New(cfg, WithCompiler(fakeCompiler{}), WithRecorder(metrics.NewPrometheusRecorder(rec)))

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, metrics.BuildOutcomeSuccess, report.Outcome)
	require.NotEmpty(t, report.BuildID)
	require.Equal(t, 3, report.Posts)
	require.Equal(t, 1, report.Experiments)
	require.Equal(t, 5, report.PagesWritten)
	require.Equal(t, 1, report.StylesCompiled)
	require.Equal(t, 1, report.AssetsCopied)
	require.Equal(t, 1, report.ExperimentAssets)
	for _, def := range Pipeline() {
		require.Contains(t, report.StageDurations, def.Name)
	}

	fa := testutils.NewFileAssertions(t, out)
	fa.AssertFileContains("index.html", `<title>Welcome</title>`).
		AssertFileContains("index.html", `<ul><li><a href="/posts/c.html">Third</a></li><li><a href="/posts/b.html">Second</a></li><li><a href="/posts/a.html">First</a></li></ul>`).
		AssertFileContains("posts/a.html", `<a class="next" href="/posts/b.html">Second</a>`).
		AssertFileContains("posts/a.html", `<time>01 January 2023</time>`).
		AssertFileContains("posts/a.html", `<p>Hello from <strong>a</strong></p>`).
		AssertFileContains("posts/a.html", `data-path="/posts/a.html"`).
		AssertFileContains("posts/a.html", `<a href="/">Home</a>`).
		AssertFileContains("posts/a.html", `<aside>c b a </aside>`).
		AssertFileContains("posts/c.html", `<table>`).
		AssertFileContains("experiments/synced-lyrics/index.html", `<main><div id="lyrics"></div></main>`).
		AssertFileContains("experiments/synced-lyrics/index.html", `<script src="/experiments/lyrics/main.js"></script>`).
		AssertFileContains("experiments/synced-lyrics/index.html", `<p>Notes about lyrics</p>`).
		AssertFileEquals("experiments/lyrics/main.js", "console.log('lyrics')\n").
		AssertFileEquals("static/css/site.css", "/* compiled site.scss */\n").
		AssertFileNotExists("static/css/_vars.css").
		AssertFileEquals("static/js/main.js", "console.log('site')\n")
}

func TestRun_Idempotent(t *testing.T) {
	cfg, out := newFixture(t, nil)
	b := New(cfg, WithCompiler(fakeCompiler{}))

	_, err := b.Run(context.Background())
	require.NoError(t, err)
	first := testutils.SnapshotTree(t, out)

	_, err = b.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, testutils.SnapshotTree(t, out))
}

func TestRun_ReloadsContentEachRun(t *testing.T) {
	cfg, out := newFixture(t, nil)
	b := New(cfg, WithCompiler(fakeCompiler{}))
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	testutils.WriteTree(t, cfg.Root, map[string]string{
		"posts/second.md": "---\ntitle: Second, revised\nslug: b\ndate: 01-02-2023\n---\nRevised\n",
	})
	_, err = b.Run(context.Background())
	require.NoError(t, err)
	testutils.NewFileAssertions(t, out).
		AssertFileContains("posts/b.html", "<p>Revised</p>").
		AssertFileContains("posts/a.html", `>Second, revised</a>`)
}

func TestRun_AbortsOnFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		compiler  fakeCompiler
		stage     StageName
		category  ferrors.ErrorCategory
	}{
		{
			name:      "broken next reference",
			overrides: map[string]string{"posts/second.md": "---\ntitle: Second\nslug: b\ndate: 01-02-2023\nnext: missing\n---\n"},
			stage:     StageRenderPosts,
			category:  ferrors.CategorySource,
		},
		{
			name:      "malformed date",
			overrides: map[string]string{"posts/bad.md": "---\nslug: bad\ndate: yesterday\n---\n"},
			stage:     StageLoadContent,
			category:  ferrors.CategorySource,
		},
		{
			name:      "post without front matter",
			overrides: map[string]string{"posts/plain.md": "no front matter\n"},
			stage:     StageLoadContent,
			category:  ferrors.CategorySource,
		},
		{
			name:      "duplicate slug",
			overrides: map[string]string{"posts/dup.md": "---\nslug: a\ndate: 05-05-2023\n---\n"},
			stage:     StageLoadContent,
			category:  ferrors.CategorySource,
		},
		{
			name:      "template syntax",
			overrides: map[string]string{"layouts/home.liquid": "{% for p in posts %}unclosed"},
			stage:     StageLoadContent,
			category:  ferrors.CategoryTemplate,
		},
		{
			name:     "style compile failure",
			compiler: fakeCompiler{err: errors.New("Expected expression")},
			stage:    StageCopyAssets,
			category: ferrors.CategoryStylesheet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := newFixture(t, tt.overrides)
			report, err := New(cfg, WithCompiler(tt.compiler)).Run(context.Background())
			require.Error(t, err)

			var se *StageError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tt.stage, se.Stage)
			require.Equal(t, StageErrorFatal, se.Kind)
			require.True(t, ferrors.HasCategory(err, tt.category), "got %v", err)
			require.Equal(t, metrics.BuildOutcomeFailed, report.Outcome)
			require.Equal(t, tt.stage, report.FailedStage)
		})
	}
}

func TestRun_StopsBeforeLaterStages(t *testing.T) {
	cfg, out := newFixture(t, map[string]string{
		"posts/second.md": "---\ntitle: Second\nslug: b\ndate: 01-02-2023\nnext: missing\n---\n",
	})
	_, err := New(cfg, WithCompiler(fakeCompiler{})).Run(context.Background())
	require.Error(t, err)
	testutils.NewFileAssertions(t, out).
		AssertFileExists("index.html").
		AssertFileNotExists("experiments/synced-lyrics/index.html").
		AssertFileNotExists("static")
}

func TestRun_Canceled(t *testing.T) {
	cfg, _ := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(cfg, WithCompiler(fakeCompiler{})).Run(ctx)
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorCanceled, se.Kind)
	require.Equal(t, metrics.BuildOutcomeCanceled, report.Outcome)
}

func TestRun_CleanRemovesStaleOutput(t *testing.T) {
	cfg, out := newFixture(t, nil)
	testutils.WriteTree(t, out, map[string]string{"posts/stale.html": "old"})

	_, err := New(cfg, WithCompiler(fakeCompiler{})).Run(context.Background())
	require.NoError(t, err)
	testutils.NewFileAssertions(t, out).AssertFileExists("posts/stale.html")

	cfg.Build.Clean = true
	_, err = New(cfg, WithCompiler(fakeCompiler{})).Run(context.Background())
	require.NoError(t, err)
	testutils.NewFileAssertions(t, out).
		AssertFileNotExists("posts/stale.html").
		AssertFileExists("posts/a.html")
}

func TestRun_EmitPartials(t *testing.T) {
	cfg, out := newFixture(t, nil)
	cfg.Sass.EmitPartials = true

	report, err := New(cfg, WithCompiler(fakeCompiler{})).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.StylesCompiled)
	testutils.NewFileAssertions(t, out).
		AssertFileEquals("static/css/_vars.css", "/* compiled _vars.scss */\n")
}

func TestRun_WritesMetricsFile(t *testing.T) {
	cfg, _ := newFixture(t, nil)
	cfg.Build.MetricsFile = filepath.Join(cfg.Root, "metrics", "sitebuilder.prom")

	_, err := New(cfg, WithCompiler(fakeCompiler{})).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Build.MetricsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `sitebuilder_build_outcomes_total{outcome="success"} 1`)
	require.Contains(t, string(data), `sitebuilder_pages_written_total{kind="post"} 3`)
}

func TestClose_ReleasesCompiler(t *testing.T) {
	cfg, _ := newFixture(t, nil)
	require.NoError(t, New(cfg).Close())
	require.NoError(t, New(cfg, WithCompiler(fakeCompiler{})).Close())
}
