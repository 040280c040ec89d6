package localstorage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "localstorage"

type Config struct {
	Path string `yaml:"path"`
}

type LocalStorage struct {
	path string
	fs   billy.Filesystem
	log  *slog.Logger
}

func New(l *slog.Logger, c *Config) (*LocalStorage, error) {
	path, err := validateAndFormatPath(c.Path)
	if err != nil {
		return nil, fmt.Errorf("error creating localstorage: %w", err)
	}

	return &LocalStorage{
		path: path,
		fs:   osfs.New(path),
		log:  l.With(logger.ObjStorageTypeKey, TYPE),
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing localstorage config: %w", err)
	}

	return conf, nil
}

func (storage *LocalStorage) Upload(ctx context.Context, workU *domain.WorkUnit) (*domain.UploadResult, error) {
	key := strings.Trim(workU.Key, "/")
	if key == "" {
		return nil, fmt.Errorf("empty key for localstorage upload")
	}

	if dir := path.Dir(key); dir != "." {
		err := storage.fs.MkdirAll(dir, os.ModePerm)
		if err != nil {
			return nil, fmt.Errorf("error creating directory %q: %w", dir, err)
		}
	}

	f, err := storage.fs.Create(key)
	if err != nil {
		return nil, fmt.Errorf("error creating file %q: %w", key, err)
	}

	written, err := io.Copy(f, workU.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		if rmErr := storage.fs.Remove(key); rmErr != nil {
			storage.log.Warn("error removing partial file", "key", key, "error", rmErr)
		}
		return nil, fmt.Errorf("error writing data into file: %w", err)
	}

	fullFilePath := filepath.Join(storage.path, filepath.FromSlash(key))
	return &domain.UploadResult{
		Bucket:      TYPE,
		Path:        fullFilePath,
		URL:         fullFilePath,
		SizeInBytes: written,
	}, nil
}

func (storage *LocalStorage) Type() string {
	return TYPE
}

func (storage *LocalStorage) Name() string {
	return storage.path
}

func validateAndFormatPath(path string) (string, error) {
	pathInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("the directory for the path doesn't exist: %w", err)
		}
		return "", fmt.Errorf("error on the provided path: %w", err)
	}

	if !pathInfo.IsDir() {
		return "", fmt.Errorf("provided path is not a directory")
	}

	return strings.TrimSuffix(path, "/"), nil
}
