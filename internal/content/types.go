// Package content loads posts and experiment bundles from the site source tree.
package content

import "github.com/blackmann/home-archive-2022-01/internal/frontmatter"

// Post is one markdown post. Meta is nil when the source file had no front matter;
// such a post cannot be indexed and fails the build downstream.
type Post struct {
	Meta       *frontmatter.PostMeta
	RawContent string
	SourcePath string
	// Fingerprint identifies the post's front matter and body content.
	Fingerprint string
}

// Slug returns the post slug, or "" when the post has no metadata.
func (p *Post) Slug() string {
	if p == nil || p.Meta == nil {
		return ""
	}
	return p.Meta.Slug
}

// ExperimentMeta is the manifest.json of an experiment bundle.
type ExperimentMeta struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Assets      []string `json:"assets"`
	Styles      []string `json:"styles"`
	Scripts     []string `json:"scripts"`
	Prepack     *string  `json:"prepack,omitempty"`
}

// Asset is a file owned by an experiment bundle.
type Asset struct {
	// Source is the absolute path of the file in the bundle.
	Source string
	// Output is the slash-separated path relative to the output root.
	Output string
}

// Experiment is a loaded experiment bundle.
type Experiment struct {
	// Meta.Assets holds output-relative paths after loading.
	Meta ExperimentMeta
	// Markup is the outer HTML of the first <main> element of the preview page.
	Markup string
	// Notes is the rendered README.md.
	Notes string
	// Bundle is the bundle directory name.
	Bundle string
	Assets []Asset
}
