package metrics

import (
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
)

// WriteTextfile writes the registry in the text exposition format to file,
// replacing it atomically.
func WriteTextfile(reg prom.Gatherer, file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create metrics directory").
			WithContext("path", file).Build()
	}
	if err := prom.WriteToTextfile(file, reg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write metrics textfile").
			WithContext("path", file).Build()
	}
	return nil
}
