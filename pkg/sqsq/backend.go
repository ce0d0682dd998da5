// Package sqsq implements the queue contract on top of Amazon SQS. Unlike
// the list-based Redis engine, visibility timeouts, redelivery accounting
// and dead-lettering are all provided by the service; this package is a thin
// translation layer.
package sqsq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS caps DelaySeconds at 15 minutes.
const maxDelay = 15 * time.Minute

// sqsBatchCap is the service-side MaxNumberOfMessages limit.
const sqsBatchCap = 10

type Config struct {
	// QueueURL is the full SQS queue URL.
	QueueURL string

	Region string

	// Endpoint overrides the service endpoint, for localstack-style setups.
	Endpoint string

	// AccessKey and SecretKey select static credentials. Leave both empty
	// to use the default provider chain.
	AccessKey string
	SecretKey string
}

func (c Config) validate() error {
	if c.QueueURL == "" {
		return errors.New("sqsq: queue url is required")
	}
	return nil
}

// Backend holds the SQS client shared by the producer/consumer pair.
type Backend struct {
	client   *sqs.Client
	queueURL string
}

func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Backend{client: client, queueURL: cfg.QueueURL}, nil
}

// NewFromClient wraps an existing SQS client.
func NewFromClient(client *sqs.Client, queueURL string) *Backend {
	return &Backend{client: client, queueURL: queueURL}
}

func (b *Backend) Producer() *Producer {
	return &Producer{client: b.client, queueURL: b.queueURL}
}

func (b *Backend) Consumer() *Consumer {
	return &Consumer{client: b.client, queueURL: b.queueURL}
}
