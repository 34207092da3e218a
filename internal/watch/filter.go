package watch

import (
	"path/filepath"
	"strings"
)

// Filter decides which changed paths qualify for a rebuild. Paths are
// compared in canonical form, so a file in the output tree never qualifies
// even when its path text resembles a source path (docs/posts/a.html).
type Filter struct {
	accept []string
	reject []string
}

// NewFilter builds a Filter accepting changes below any of accept and
// rejecting changes below any of reject.
func NewFilter(accept, reject []string) *Filter {
	f := &Filter{}
	for _, p := range accept {
		f.accept = append(f.accept, Canonical(p))
	}
	for _, p := range reject {
		f.reject = append(f.reject, Canonical(p))
	}
	return f
}

// Accept reports whether a change at path should trigger a rebuild.
func (f *Filter) Accept(path string) bool {
	if ShouldIgnore(path) {
		return false
	}
	p := Canonical(path)
	for _, r := range f.reject {
		if within(r, p) {
			return false
		}
	}
	for _, a := range f.accept {
		if within(a, p) {
			return true
		}
	}
	return false
}

// Canonical returns the absolute, cleaned form of path with symlinks
// resolved. For paths that no longer exist the parent directory is resolved
// instead.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

// ShouldIgnore reports whether path names a hidden, editor temp or OS
// metadata file.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db" || base == "4913"
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
