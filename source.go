package data

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Source is the filesystem access used by the loaders. Every file read goes through Open.
type Source interface {
	Stat(path string) (os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

// OSSource reads from the local filesystem.
type OSSource struct{}

// NewOSSource returns a Source backed by the local filesystem.
func NewOSSource() Source {
	return &OSSource{}
}

func (s *OSSource) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (s *OSSource) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// absolutePath returns the absolute form of 'path', falling back to 'path' itself if it can not be resolved.
func absolutePath(path string) string {

	abs_path, err := filepath.Abs(path)

	if err != nil {
		return path
	}

	return abs_path
}

// ensureFile checks that 'path' references an existing regular file. A missing path (or a directory) yields a *NotFoundError.
func ensureFile(src Source, path string) error {

	info, err := src.Stat(path)

	if err != nil {

		if os.IsNotExist(err) {
			return &NotFoundError{Path: absolutePath(path)}
		}

		return errors.Wrapf(err, "Failed to stat %s", path)
	}

	if info.IsDir() {
		return &NotFoundError{Path: absolutePath(path)}
	}

	return nil
}

// readAll opens 'path' via 'src' and returns its contents.
func readAll(src Source, path string) ([]byte, error) {

	fh, err := src.Open(path)

	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %s", path)
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %s", path)
	}

	return body, nil
}
