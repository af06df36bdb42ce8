package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Sender delivers an OTP to the account holder.
type Sender interface {
	Send(ctx context.Context, ev OTPIssuedEvent) error
}

// LogSender writes the OTP to the structured log.  It stands in for a real
// SMS or mail gateway.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, ev OTPIssuedEvent) error {
	s.Log.Info("otp dispatched",
		zap.String("account_id", ev.AccountID),
		zap.Int64("contact", ev.Contact),
		zap.String("otp", ev.OTP),
		zap.Time("expires_at", ev.ExpiresAt),
	)
	return nil
}

// Consumer reads OTP events from RabbitMQ and forwards them to a Sender.
type Consumer struct {
	URL    string
	Queue  string
	Sender Sender
	Log    *zap.Logger
}

func NewConsumer(url, queue string, sender Sender, log *zap.Logger) *Consumer {
	if queue == "" {
		queue = DefaultOTPQueue
	}
	return &Consumer{URL: url, Queue: queue, Sender: sender, Log: log}
}

// Run connects, declares the durable queue and consumes until ctx is
// cancelled.  Broker failures trigger a reconnect with exponential
// backoff capped at 30s; Run only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("otp-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("otp-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("otp-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.Log.Error("otp-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev OTPIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Contact == 0 || ev.OTP == "" {
		return errors.New("event without contact or otp")
	}
	return c.Sender.Send(ctx, ev)
}
