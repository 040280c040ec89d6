package httpstorage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jademcosta/courier/pkg/adapters"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "httpstorage"
const defaultTimeout = 60 * time.Second

type Config struct {
	URL             string `yaml:"url"`
	TimeoutInMillis int64  `yaml:"timeout_milliseconds"`
}

type HTTPStorage struct {
	url    string
	log    *slog.Logger
	client *http.Client
}

func NewHTTPStorage(l *slog.Logger, c *Config) (*HTTPStorage, error) {
	url, err := validateAndFormatURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("error creating httpstorage: %w", err)
	}

	timeout := defaultTimeout
	if c.TimeoutInMillis > 0 {
		timeout = time.Duration(c.TimeoutInMillis) * time.Millisecond
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxConnsPerHost: 10,
			IdleConnTimeout: 10 * time.Second,
		},
	}

	return &HTTPStorage{
		url:    url,
		log:    l.With(logger.ObjStorageTypeKey, TYPE),
		client: client,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing httpstorage config: %w", err)
	}

	return conf, nil
}

func (storage *HTTPStorage) Upload(ctx context.Context, workU *domain.WorkUnit) (*domain.UploadResult, error) {
	url, path := assembleURL(storage.url, workU.Key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, workU.Body)
	if err != nil {
		return nil, fmt.Errorf("error creating http request: %w", err)
	}

	if workU.Size >= 0 {
		req.ContentLength = workU.Size
	}
	if encoding := adapters.ContentEncodingFromKey(workU.Key); encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := storage.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing http request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return &domain.UploadResult{
		Bucket:      TYPE,
		Path:        path,
		URL:         url,
		SizeInBytes: workU.Size,
	}, nil
}

func (storage *HTTPStorage) Type() string {
	return TYPE
}

func (storage *HTTPStorage) Name() string {
	return storage.url
}

func validateAndFormatURL(url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("the url should start with http:// or https://")
	}

	if strings.Count(url, "%s") > 1 {
		return "", fmt.Errorf("multiple %%s detected on URL, only 1 is allowed")
	}

	placeholderNotPreceededBySlash :=
		strings.Contains(url, "%s") && !strings.Contains(url, "/%s")

	if placeholderNotPreceededBySlash {
		return "", fmt.Errorf("the %%s should be preceeded by a / on URL")
	}

	return url, nil
}

// assembleURL replaces the %s placeholder with the key. URLs without a
// placeholder are used as is, and the path is then empty.
func assembleURL(url string, key string) (string, string) {
	if !strings.Contains(url, "%s") {
		return url, ""
	}

	path := strings.Trim(key, "/")
	return strings.Replace(url, "%s", path, 1), path
}
