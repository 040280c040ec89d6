package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configYaml = `
timeout_milliseconds: 1234
bucket: some-s3-bucket-name
region: some-s3-region
endpoint: my-s3-endpoint
access_key: "access s3!"
secret_key: "secret s3!"
prefix: some/prefix
force_path_style: true
part_size_in_bytes: 6291456
concurrency: 3
`

type mockedS3Uploader struct {
	calledWith []*awsS3.PutObjectInput
	bodies     []string
	location   string
	err        error
}

func (mock *mockedS3Uploader) Upload(
	ctx context.Context, input *awsS3.PutObjectInput, _ ...func(*manager.Uploader),
) (*manager.UploadOutput, error) {
	mock.calledWith = append(mock.calledWith, input)
	body, _ := io.ReadAll(input.Body)
	mock.bodies = append(mock.bodies, string(body))

	if mock.err != nil {
		return nil, mock.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &manager.UploadOutput{Location: mock.location}, nil
}

func TestParseConfig(t *testing.T) {
	s3Config, err := ParseConfig([]byte(configYaml))
	require.NoError(t, err, "should not return error when parsing s3 config")

	assert.Equal(t, int64(1234), s3Config.TimeoutInMillis, "bucket timeout_milliseconds doesn't match")
	assert.Equal(t, "some-s3-bucket-name", s3Config.Bucket, "bucket name doesn't match")
	assert.Equal(t, "some-s3-region", s3Config.Region, "bucket region doesn't match")
	assert.Equal(t, "my-s3-endpoint", s3Config.Endpoint, "bucket endpoint doesn't match")
	assert.Equal(t, "access s3!", s3Config.AccessKey, "bucket access_key doesn't match")
	assert.Equal(t, "secret s3!", s3Config.SecretKey, "bucket secret_key doesn't match")
	assert.Equal(t, "some/prefix", s3Config.Prefix, "prefix doesn't match")
	assert.True(t, s3Config.ForcePathStyle, "force_path_style doesn't match")
	assert.Equal(t, int64(6291456), s3Config.PartSizeInBytes, "part_size_in_bytes doesn't match")
	assert.Equal(t, 3, s3Config.Concurrency, "concurrency doesn't match")
}

func TestNewRequiresBucketName(t *testing.T) {
	_, err := New(logger.NewDummy(), &Config{Region: "us-east-1"})
	assert.Error(t, err, "a bucket name is mandatory")
}

func TestItTranslatesWorkUnitIntoUploadInput(t *testing.T) {
	c := &Config{Bucket: "some_bucket_name", Region: "us-east-1", Prefix: "/fixed/"}
	sut, err := New(logger.NewDummy(), c)
	require.NoError(t, err, "should not error on New")

	mockUploader := &mockedS3Uploader{location: "https://some_bucket_name.s3.amazonaws.com/fixed/a/b.gzip"}
	sut.uploader = mockUploader

	result, err := sut.Upload(context.Background(), &domain.WorkUnit{
		Key:  "a/b.gzip",
		Body: strings.NewReader("A data for input"),
		Size: 16,
	})
	require.NoError(t, err, "upload should not error")

	require.Len(t, mockUploader.calledWith, 1, "should have called the uploader once")
	input := mockUploader.calledWith[0]
	assert.Equal(t, "some_bucket_name", *input.Bucket, "the bucket name should be the one from config")
	assert.Equal(t, "fixed/a/b.gzip", *input.Key, "the key should have the fixed prefix")
	assert.Equal(t, "gzip", *input.ContentEncoding, "content encoding should follow the key extension")
	assert.Equal(t, "A data for input", mockUploader.bodies[0], "the body should be streamed as is")

	assert.Equal(t, &domain.UploadResult{
		Bucket:      "some_bucket_name",
		Region:      "us-east-1",
		Path:        "fixed/a/b.gzip",
		URL:         "https://some_bucket_name.s3.amazonaws.com/fixed/a/b.gzip",
		SizeInBytes: 16,
	}, result)
}

func TestNoContentEncodingForPlainKeys(t *testing.T) {
	sut, err := New(logger.NewDummy(), &Config{Bucket: "b", Region: "us-east-1"})
	require.NoError(t, err)
	mockUploader := &mockedS3Uploader{}
	sut.uploader = mockUploader

	_, err = sut.Upload(context.Background(), &domain.WorkUnit{Key: "photo.jpg", Body: strings.NewReader("x"), Size: 1})
	require.NoError(t, err)
	assert.Nil(t, mockUploader.calledWith[0].ContentEncoding, "unknown extensions should not set an encoding")
}

func TestUploadErrorIsWrapped(t *testing.T) {
	sut, err := New(logger.NewDummy(), &Config{Bucket: "b", Region: "us-east-1"})
	require.NoError(t, err)

	boom := errors.New("s3 is down")
	sut.uploader = &mockedS3Uploader{err: boom}

	result, err := sut.Upload(context.Background(), &domain.WorkUnit{Key: "k", Body: strings.NewReader("x"), Size: 1})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom, "the backend error should be wrapped")
}

func TestUploadHonorsCancelledContext(t *testing.T) {
	sut, err := New(logger.NewDummy(), &Config{Bucket: "b", Region: "us-east-1", TimeoutInMillis: 1000})
	require.NoError(t, err)
	sut.uploader = &mockedS3Uploader{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sut.Upload(ctx, &domain.WorkUnit{Key: "k", Body: strings.NewReader("x"), Size: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetadata(t *testing.T) {
	sut, err := New(logger.NewDummy(), &Config{Bucket: "my-bucket", Region: "us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, "s3", sut.Type())
	assert.Equal(t, "my-bucket", sut.Name())
}
