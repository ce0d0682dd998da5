package acheron

import (
	"context"
	"encoding/json"
	"time"
)

// Acker finalizes a delivery. Implementations are one-shot: the second call
// to Ack or Nack fails with ErrDoubleFinalize.
type Acker interface {
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error

	// SetAckDeadline extends or shortens the visibility window of an
	// in-flight delivery. Backends without per-message deadlines return
	// ErrUnsupported.
	SetAckDeadline(ctx context.Context, d time.Duration) error
}

// Delivery pairs a claimed payload with the Acker that finalizes it.
type Delivery struct {
	payload []byte
	acker   Acker
}

// NewDelivery is used by backend implementations to hand a claimed payload
// to the application.
func NewDelivery(payload []byte, acker Acker) *Delivery {
	return &Delivery{payload: payload, acker: acker}
}

// Payload returns the raw payload bytes.
func (d *Delivery) Payload() []byte {
	return d.payload
}

// JSON unmarshals the payload into v.
func (d *Delivery) JSON(v any) error {
	return json.Unmarshal(d.payload, v)
}

func (d *Delivery) Ack(ctx context.Context) error {
	return d.acker.Ack(ctx)
}

func (d *Delivery) Nack(ctx context.Context) error {
	return d.acker.Nack(ctx)
}

func (d *Delivery) SetAckDeadline(ctx context.Context, dur time.Duration) error {
	return d.acker.SetAckDeadline(ctx, dur)
}

// SendJSON marshals v and enqueues the resulting bytes via p.
func SendJSON(ctx context.Context, p Producer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.SendRaw(ctx, data)
}

// SendJSONScheduled marshals v and enqueues it for delivery after delay.
func SendJSONScheduled(ctx context.Context, p Producer, v any, delay time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.SendScheduled(ctx, data, delay)
}
