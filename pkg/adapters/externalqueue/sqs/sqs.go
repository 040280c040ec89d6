package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsSqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "sqs"
const startupTimeout = 20 * time.Second
const defaultSendTimeout = 10 * time.Second

type sqsSendMessageAPI interface {
	SendMessage(context.Context, *awsSqs.SendMessageInput, ...func(*awsSqs.Options)) (*awsSqs.SendMessageOutput, error)
}

type Message struct {
	SchemaVersion string `json:"schema_version"`
	Source        string `json:"source"`
	SavedAt       int64  `json:"saved_at"`
	Bucket        Bucket `json:"bucket"`
	Object        Object `json:"object"`
}

type Object struct {
	Path            string `json:"path"`
	FullURL         string `json:"full_url"`
	SizeInBytes     int64  `json:"size_in_bytes"`
	CompressionType string `json:"compression_algorithm,omitempty"`
}

type Bucket struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

type Config struct {
	URL                 string `yaml:"url"`
	Region              string `yaml:"region"`
	Endpoint            string `yaml:"endpoint"`
	SendTimeoutInMillis int64  `yaml:"send_timeout_milliseconds"`
	AccessKey           string `yaml:"access_key"`
	SecretKey           string `yaml:"secret_key"`
}

type Queue struct {
	log         *slog.Logger
	client      sqsSendMessageAPI
	queueURL    string
	sendTimeout time.Duration
}

func New(l *slog.Logger, c *Config) (*Queue, error) {
	queueURL := c.URL
	if !validURL(queueURL) {
		return nil, fmt.Errorf("invalid url for SQS %q", queueURL)
	}

	ctx, cancelFunc := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelFunc()

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(c.Endpoint))
	}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	sendTimeout := defaultSendTimeout
	if c.SendTimeoutInMillis > 0 {
		sendTimeout = time.Duration(c.SendTimeoutInMillis) * time.Millisecond
	}

	return &Queue{
		log:         l.With(logger.ExternalQueueTypeKey, TYPE),
		client:      awsSqs.NewFromConfig(sdkConfig),
		queueURL:    queueURL,
		sendTimeout: sendTimeout,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing SQS config: %w", err)
	}

	return conf, nil
}

func (q *Queue) Enqueue(ctx context.Context, msg *domain.MessageContext) error {
	message := Message{
		SchemaVersion: domain.MsgSchemaVersion,
		Source:        msg.Source,
		SavedAt:       msg.SavedAt,
		Bucket: Bucket{
			Name:   msg.Bucket,
			Region: msg.Region,
		},
		Object: Object{
			Path:            msg.Path,
			FullURL:         msg.URL,
			SizeInBytes:     msg.SizeInBytes,
			CompressionType: msg.CompressionType,
		},
	}

	bodyAsBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error encoding SQS message: %w", err)
	}

	body := string(bodyAsBytes)
	messageInput := &awsSqs.SendMessageInput{
		MessageBody: &body,
		QueueUrl:    &q.queueURL,
	}

	ctx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	defer cancel()

	q.log.Debug("sending SQS message", "queue_url", q.queueURL)
	enqueueOutput, err := q.client.SendMessage(ctx, messageInput)
	if err != nil {
		return err
	}

	q.log.Debug("enqueued message on SQS", "message_id", enqueueOutput.MessageId)
	return nil
}

func validURL(url string) bool {
	return len(url) > 0
}

func (q *Queue) Type() string {
	return TYPE
}

func (q *Queue) Name() string {
	return q.queueURL
}
