package s3

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jademcosta/courier/pkg/adapters"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "s3"
const startupTimeout = 20 * time.Second

type Config struct {
	TimeoutInMillis int64  `yaml:"timeout_milliseconds"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	Prefix          string `yaml:"prefix"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	PartSizeInBytes int64  `yaml:"part_size_in_bytes"`
	Concurrency     int    `yaml:"concurrency"`
}

type uploaderAPI interface {
	Upload(ctx context.Context, input *awsS3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Bucket struct {
	name        string
	region      string
	fixedPrefix string
	timeout     time.Duration
	uploader    uploaderAPI
	log         *slog.Logger
}

func New(l *slog.Logger, c *Config) (*Bucket, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelFunc()

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	client := awsS3.NewFromConfig(sdkConfig, func(o *awsS3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.ForcePathStyle
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if c.PartSizeInBytes > 0 {
			u.PartSize = c.PartSizeInBytes
		}
		if c.Concurrency > 0 {
			u.Concurrency = c.Concurrency
		}
	})

	return &Bucket{
		uploader:    uploader,
		log:         l.With(logger.ObjStorageTypeKey, TYPE),
		name:        c.Bucket,
		region:      c.Region,
		fixedPrefix: c.Prefix,
		timeout:     time.Duration(c.TimeoutInMillis) * time.Millisecond,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing S3 config: %w", err)
	}

	return conf, nil
}

func (bucket *Bucket) Upload(ctx context.Context, workU *domain.WorkUnit) (*domain.UploadResult, error) {
	key := mergeParts(bucket.fixedPrefix, workU.Key)

	uploadInput := &awsS3.PutObjectInput{
		Bucket: aws.String(bucket.name),
		Key:    aws.String(key),
		Body:   workU.Body,
	}
	if encoding := adapters.ContentEncodingFromKey(key); encoding != "" {
		uploadInput.ContentEncoding = aws.String(encoding)
	}

	if bucket.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bucket.timeout)
		defer cancel()
	}

	uploadInfo, err := bucket.uploader.Upload(ctx, uploadInput)
	if err != nil {
		return nil, fmt.Errorf("error when uploading to S3: %w", err)
	}

	bucket.log.Debug("object uploaded", "key", key, "location", uploadInfo.Location)
	return &domain.UploadResult{
		Bucket:      bucket.name,
		Region:      bucket.region,
		Path:        key,
		URL:         uploadInfo.Location,
		SizeInBytes: workU.Size,
	}, nil
}

func (bucket *Bucket) Type() string {
	return TYPE
}

func (bucket *Bucket) Name() string {
	return bucket.name
}

func mergeParts(fixedPrefix string, key string) string {
	prefix := strings.Trim(fixedPrefix, "/")
	key = strings.Trim(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
