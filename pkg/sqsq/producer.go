package sqsq

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
)

type Producer struct {
	client   *sqs.Client
	queueURL string
}

func (p *Producer) SendRaw(ctx context.Context, payload []byte) error {
	return p.send(ctx, payload, 0)
}

func (p *Producer) SendScheduled(ctx context.Context, payload []byte, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	if delay > maxDelay {
		return fmt.Errorf("sqsq: delay %s exceeds the %s service maximum", delay, maxDelay)
	}
	return p.send(ctx, payload, delay)
}

// RedriveDLQ is not implemented: SQS redrive is a redrive-policy concern
// managed through the service API, not through the queue client.
func (p *Producer) RedriveDLQ(ctx context.Context) error {
	return acheron.ErrUnsupported
}

func (p *Producer) send(ctx context.Context, payload []byte, delay time.Duration) error {
	delaySeconds := int32(delay / time.Second)
	if delay > 0 && delaySeconds == 0 {
		// Sub-second delays round up rather than silently becoming
		// immediate sends.
		delaySeconds = 1
	}

	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(p.queueURL),
		MessageBody:  aws.String(string(payload)),
		DelaySeconds: delaySeconds,
	})
	if err != nil {
		return acheron.WrapBackend("sqs send", err)
	}
	return nil
}

var _ acheron.Producer = (*Producer)(nil)
