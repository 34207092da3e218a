package render

import (
	"github.com/blackmann/home-archive-2022-01/internal/content"
	"github.com/blackmann/home-archive-2022-01/internal/frontmatter"
	"github.com/blackmann/home-archive-2022-01/internal/index"
)

// DisplayDateLayout formats post dates for the post layout ("14 February 2022").
const DisplayDateLayout = "02 January 2006"

// optional maps a nil pointer to a nil binding so `{% if %}` treats it as unset.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func postMetaValue(m *frontmatter.PostMeta) map[string]any {
	var date any
	if !m.Date.IsZero() {
		date = m.Date.Unix()
	}
	return map[string]any{
		"date":        date,
		"draft":       m.Draft,
		"next":        optional(m.Next),
		"slug":        m.Slug,
		"title":       m.Title,
		"description": m.Description,
		"title_meta":  optional(m.TitleMeta),
	}
}

func postValue(p *content.Post) map[string]any {
	v := map[string]any{
		"raw_content": p.RawContent,
		"fingerprint": p.Fingerprint,
		"meta":        nil,
	}
	if p.Meta != nil {
		v["meta"] = postMetaValue(p.Meta)
	}
	return v
}

func postValues(posts []*content.Post) []map[string]any {
	out := make([]map[string]any, len(posts))
	for i, p := range posts {
		out[i] = postValue(p)
	}
	return out
}

func stringsValue(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func experimentValue(e *content.Experiment) map[string]any {
	return map[string]any{
		"experiment_markup": e.Markup,
		"notes":             e.Notes,
		"meta": map[string]any{
			"title":       e.Meta.Title,
			"slug":        e.Meta.Slug,
			"description": e.Meta.Description,
			"assets":      stringsValue(e.Meta.Assets),
			"styles":      stringsValue(e.Meta.Styles),
			"scripts":     stringsValue(e.Meta.Scripts),
			"prepack":     optional(e.Meta.Prepack),
		},
	}
}

func nextPostValue(n *index.NextPost) any {
	if n == nil {
		return nil
	}
	return map[string]any{"title": n.Title, "slug": n.Slug}
}
