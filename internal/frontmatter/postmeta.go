package frontmatter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recognised post metadata keys.
const (
	KeyTitle       = "title"
	KeySlug        = "slug"
	KeyDraft       = "draft"
	KeyDate        = "date"
	KeyTitleMeta   = "title_meta"
	KeyNext        = "next"
	KeyDescription = "description"
)

// DateLayout is the day-month-year layout used by the `date` key.
const DateLayout = "02-01-2006"

var (
	// ErrMalformedLine is returned for a non-blank line that has no `key: value` shape.
	ErrMalformedLine = errors.New("front matter line is not a key: value pair")
	// ErrInvalidDate is returned when a `date` value is not a day-month-year triplet.
	ErrInvalidDate = errors.New("invalid front matter date")
)

// PostMeta is the typed metadata of a single post.
//
// Draft is informational only: drafts are parsed but never filtered out of a build.
type PostMeta struct {
	Date        time.Time
	Draft       bool
	Slug        string
	Title       string
	Description string
	TitleMeta   *string
	Next        *string
}

// ParsePostMeta parses a raw front matter block into a PostMeta.
//
// Lines are `key: value`, split on the first colon with the value trimmed. Blank
// lines and delimiter lines are skipped and unknown keys are ignored. `draft` is
// true only for the exact value `true`; `True` or `1` are false.
func ParsePostMeta(block []byte) (PostMeta, error) {
	var meta PostMeta

	for i, raw := range strings.Split(string(block), "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" || line == Delimiter || strings.TrimSpace(line) == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return PostMeta{}, fmt.Errorf("line %d %q: %w", i+1, line, ErrMalformedLine)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case KeyTitle:
			meta.Title = value
		case KeySlug:
			meta.Slug = value
		case KeyDraft:
			meta.Draft = value == "true"
		case KeyDate:
			date, err := ParseDate(value)
			if err != nil {
				return PostMeta{}, fmt.Errorf("line %d: %w", i+1, err)
			}
			meta.Date = date
		case KeyTitleMeta:
			v := value
			meta.TitleMeta = &v
		case KeyNext:
			v := value
			meta.Next = &v
		case KeyDescription:
			meta.Description = value
		}
	}

	return meta, nil
}

// ParseDate parses a `day-month-year` numeric triplet into UTC midnight.
func ParseDate(value string) (time.Time, error) {
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w %q: expected day-month-year", ErrInvalidDate, value)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q: %q is not numeric", ErrInvalidDate, value, p)
		}
		nums[i] = int(n)
	}

	day, month, year := nums[0], nums[1], nums[2]
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month || date.Year() != year {
		return time.Time{}, fmt.Errorf("%w %q: no such calendar day", ErrInvalidDate, value)
	}
	return date, nil
}

// FormatPostMeta serialises the recognised fields of meta as a delimited block.
//
// Keys are written in a fixed order and optional fields only when present, so that
// ParsePostMeta(FormatPostMeta(m)) reproduces m for any meta whose values carry no
// surrounding whitespace or newlines.
func FormatPostMeta(meta PostMeta) []byte {
	var b strings.Builder
	line := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	b.WriteString(Delimiter + "\n")
	line(KeyTitle, meta.Title)
	line(KeySlug, meta.Slug)
	if !meta.Date.IsZero() {
		line(KeyDate, meta.Date.Format(DateLayout))
	}
	line(KeyDraft, strconv.FormatBool(meta.Draft))
	line(KeyDescription, meta.Description)
	if meta.TitleMeta != nil {
		line(KeyTitleMeta, *meta.TitleMeta)
	}
	if meta.Next != nil {
		line(KeyNext, *meta.Next)
	}
	b.WriteString(Delimiter + "\n")
	return []byte(b.String())
}
