package render

import (
	"os"
	"path/filepath"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// WritePage writes page below outDir, creating parent directories and
// replacing any previous file. It returns the full path written.
func WritePage(outDir string, page Page) (string, error) {
	if outDir == "" {
		return "", ferrors.ValidationError("output directory is required").Build()
	}
	rel := filepath.Clean(filepath.FromSlash(page.Output))
	if page.Output == "" || !filepath.IsLocal(rel) {
		return "", ferrors.ValidationError("page output path must stay under the output directory").
			WithContext("path", page.Output).Build()
	}

	full := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			Fatal().WithContext("path", filepath.Dir(full)).Build()
	}

	// #nosec G304,G306 -- full is validated to stay under outDir; site output is world-readable
	if err := os.WriteFile(full, []byte(page.HTML), 0o644); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "write page").
			Fatal().WithContext("path", full).Build()
	}
	return full, nil
}
