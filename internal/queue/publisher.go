package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
)

// Publisher publishes OTP events to RabbitMQ.  Each call dials its own
// connection; resets are rare enough that pooling is not worth the
// reconnect handling.
type Publisher struct {
	URL   string
	Queue string
}

func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultOTPQueue
	}
	return &Publisher{URL: url, Queue: queue}
}

// Dispatch publishes ev as a persistent JSON message on the default
// exchange, routed to the queue by name.  Errors are returned so the caller
// decides whether the request should fail.
func (p *Publisher) Dispatch(ctx context.Context, ev OTPIssuedEvent) error {
	fail := oops.In("queue").Code("OTP_PUBLISH").With("queue", p.Queue)

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fail.With("step", "dial").Wrap(err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fail.With("step", "channel").Wrap(err)
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fail.With("step", "declare").Wrap(err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fail.With("step", "marshal").Wrap(err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		return fail.With("step", "publish").Wrap(err)
	}
	return nil
}

// Direct hands events straight to a Sender without a broker.  It is used
// when RABBITMQ_URL is not configured.
type Direct struct {
	Sender Sender
}

func (d Direct) Dispatch(ctx context.Context, ev OTPIssuedEvent) error {
	return d.Sender.Send(ctx, ev)
}
