package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/logger"
)

const ComponentType = "source"

var ErrNotRegularFile = errors.New("not a regular file")

// Filesystem is where upload sources are read from. Paths are resolved
// relative to its root.
type Filesystem struct {
	fs  billy.Filesystem
	log *slog.Logger
}

func New(l *slog.Logger, conf config.SourceConfig) *Filesystem {
	return NewFromBilly(l, osfs.New(conf.Root))
}

// NewMemory returns an empty in-memory filesystem.
func NewMemory(l *slog.Logger) *Filesystem {
	return NewFromBilly(l, memfs.New())
}

func NewFromBilly(l *slog.Logger, fs billy.Filesystem) *Filesystem {
	return &Filesystem{
		fs:  fs,
		log: l.With(logger.ComponentKey, ComponentType),
	}
}

// Open returns the contents of path along with its size in bytes.
func (src *Filesystem) Open(path string) (io.ReadCloser, int64, error) {
	info, err := src.fs.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("source: stat %q: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("source: open %q: %w", path, ErrNotRegularFile)
	}

	f, err := src.fs.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("source: open %q: %w", path, err)
	}

	src.log.Debug("source opened", "path", path, "size", info.Size())
	return f, info.Size(), nil
}

// WriteFile creates (or truncates) path with the given content, creating
// parent directories as needed.
func (src *Filesystem) WriteFile(path string, data []byte) error {
	f, err := src.fs.Create(path)
	if err != nil {
		return fmt.Errorf("source: create %q: %w", path, err)
	}

	_, err = f.Write(data)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("source: write %q: %w", path, err)
	}
	if closeErr != nil {
		return fmt.Errorf("source: close %q: %w", path, closeErr)
	}
	return nil
}
