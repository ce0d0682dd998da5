package sqsq

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
)

type Consumer struct {
	client   *sqs.Client
	queueURL string
}

// Receive long-polls until a message arrives or ctx is done. SQS caps a
// single wait at 20 seconds, so this loops.
func (c *Consumer) Receive(ctx context.Context) (*acheron.Delivery, error) {
	for {
		ds, err := c.poll(ctx, 1, 20*time.Second)
		if err != nil {
			return nil, err
		}
		if len(ds) > 0 {
			return ds[0], nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (c *Consumer) ReceiveAll(ctx context.Context, max int, deadline time.Duration) ([]*acheron.Delivery, error) {
	if max <= 0 {
		return nil, nil
	}
	if max > sqsBatchCap {
		max = sqsBatchCap
	}
	if deadline > 20*time.Second {
		deadline = 20 * time.Second
	}
	return c.poll(ctx, max, deadline)
}

func (c *Consumer) MaxMessages() int {
	return sqsBatchCap
}

func (c *Consumer) poll(ctx context.Context, max int, wait time.Duration) ([]*acheron.Delivery, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, acheron.WrapBackend("sqs receive", err)
	}

	ds := make([]*acheron.Delivery, 0, len(out.Messages))
	for _, msg := range out.Messages {
		ds = append(ds, acheron.NewDelivery([]byte(aws.ToString(msg.Body)), &sqsAcker{
			client:        c.client,
			queueURL:      c.queueURL,
			receiptHandle: aws.ToString(msg.ReceiptHandle),
		}))
	}
	return ds, nil
}

type sqsAcker struct {
	client        *sqs.Client
	queueURL      string
	receiptHandle string
	finalized     bool
}

func (a *sqsAcker) Ack(ctx context.Context) error {
	if a.finalized {
		return acheron.ErrDoubleFinalize
	}
	_, err := a.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(a.queueURL),
		ReceiptHandle: aws.String(a.receiptHandle),
	})
	if err != nil {
		return acheron.WrapBackend("sqs delete", err)
	}
	a.finalized = true
	return nil
}

// Nack makes the message immediately visible again by zeroing its
// visibility timeout; the service handles attempt accounting and its own
// redrive policy from there.
func (a *sqsAcker) Nack(ctx context.Context) error {
	if a.finalized {
		return acheron.ErrDoubleFinalize
	}
	if err := a.setVisibility(ctx, 0); err != nil {
		return err
	}
	a.finalized = true
	return nil
}

// SetAckDeadline is supported here, unlike in the list-based engine.
func (a *sqsAcker) SetAckDeadline(ctx context.Context, d time.Duration) error {
	if a.finalized {
		return acheron.ErrDoubleFinalize
	}
	return a.setVisibility(ctx, int32(d/time.Second))
}

func (a *sqsAcker) setVisibility(ctx context.Context, seconds int32) error {
	_, err := a.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(a.queueURL),
		ReceiptHandle:     aws.String(a.receiptHandle),
		VisibilityTimeout: seconds,
	})
	if err != nil {
		return acheron.WrapBackend("sqs change visibility", err)
	}
	return nil
}

var (
	_ acheron.Consumer = (*Consumer)(nil)
	_ acheron.Acker    = (*sqsAcker)(nil)
)
