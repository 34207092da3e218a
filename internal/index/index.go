// Package index orders posts and derives the relationships between them.
package index

import (
	"sort"

	"github.com/blackmann/home-archive-2022-01/internal/content"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// RelatedWindow is the maximum number of posts returned by Related.
const RelatedWindow = 6

// relatedLookback is how many newer posts precede the current one in its window.
const relatedLookback = 3

// NextPost is the successor reference embedded in a post page.
type NextPost struct {
	Title string
	Slug  string
}

// Index is the date-descending post collection for one build.
type Index struct {
	posts  []*content.Post
	bySlug map[string]int
}

// New sorts posts newest first and indexes them by slug.
//
// Every post must carry metadata with a date, and slugs must be unique.
// Posts sharing a date are ordered by slug.
func New(posts []*content.Post) (*Index, error) {
	sorted := make([]*content.Post, 0, len(posts))
	for _, p := range posts {
		if p == nil || p.Meta == nil {
			path := ""
			if p != nil {
				path = p.SourcePath
			}
			return nil, ferrors.SourceError("post has no front matter").
				WithContext("path", path).Build()
		}
		if p.Meta.Date.IsZero() {
			return nil, ferrors.SourceError("post has no date").
				WithContext("path", p.SourcePath).
				WithContext("slug", p.Meta.Slug).Build()
		}
		sorted = append(sorted, p)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Meta, sorted[j].Meta
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.Slug < b.Slug
	})

	bySlug := make(map[string]int, len(sorted))
	for i, p := range sorted {
		if prev, dup := bySlug[p.Meta.Slug]; dup {
			return nil, ferrors.SourceError("duplicate post slug").
				WithContext("slug", p.Meta.Slug).
				WithContext("paths", sorted[prev].SourcePath+","+p.SourcePath).Build()
		}
		bySlug[p.Meta.Slug] = i
	}

	return &Index{posts: sorted, bySlug: bySlug}, nil
}

// Posts returns the sorted collection. Callers must not modify it.
func (x *Index) Posts() []*content.Post { return x.posts }

// Len returns the number of posts.
func (x *Index) Len() int { return len(x.posts) }

// At returns the post at position in sorted order.
func (x *Index) At(position int) *content.Post { return x.posts[position] }

// Lookup returns the position of the post with slug.
func (x *Index) Lookup(slug string) (int, bool) {
	i, ok := x.bySlug[slug]
	return i, ok
}

// Related returns the contiguous window of up to RelatedWindow posts starting
// up to three positions before position and always containing it.
func (x *Index) Related(position int) []*content.Post {
	if position < 0 || position >= len(x.posts) {
		return nil
	}
	start := max(0, position-relatedLookback)
	end := min(len(x.posts), start+RelatedWindow)
	return x.posts[start:end]
}

// ResolveNext resolves an optional successor slug. A nil ref resolves to nil;
// a slug that names no post is a source error.
func (x *Index) ResolveNext(ref *string) (*NextPost, error) {
	if ref == nil {
		return nil, nil
	}
	i, ok := x.bySlug[*ref]
	if !ok {
		return nil, ferrors.SourceError("next post not found").
			WithContext("slug", *ref).Build()
	}
	meta := x.posts[i].Meta
	return &NextPost{Title: meta.Title, Slug: meta.Slug}, nil
}
