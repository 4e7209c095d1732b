package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:   client,
		prefetch: prefetch,
		logger:   logger,
	}
}

func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	b := newBackoff()
	for ctx.Err() == nil {
		err := c.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			b.Reset()
			continue
		}

		wait := b.Next()
		c.logger.Warn("consumer interrupted, reconnecting",
			zap.Error(err),
			zap.String("queue", queue),
			zap.Duration("backoff", wait),
		)
		if sleepContext(ctx, wait) != nil {
			break
		}
	}
	return nil
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// disposition is how a delivery is settled with the broker.
type disposition int

const (
	dispositionAck disposition = iota
	dispositionRequeue
	dispositionDeadLetter
)

func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler MessageHandler) error {
	var err error
	switch c.dispatch(ctx, d, handler) {
	case dispositionAck:
		err = d.Ack(false)
	case dispositionRequeue:
		err = d.Nack(false, true)
	default:
		// Reject without requeue routes through the queue's dead-letter exchange.
		err = d.Reject(false)
	}
	if err != nil {
		return fmt.Errorf("failed to settle delivery: %w", err)
	}
	return nil
}

func (c *RabbitMQConsumer) dispatch(ctx context.Context, d amqp.Delivery, handler MessageHandler) disposition {
	var msg GenerationRequestMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Warn("rejecting undecodable message",
			zap.Error(err),
			zap.String("routingKey", d.RoutingKey),
		)
		return dispositionDeadLetter
	}
	if err := msg.Validate(); err != nil {
		c.logger.Warn("rejecting invalid message",
			zap.Error(err),
			zap.String("batchId", msg.BatchID),
		)
		return dispositionDeadLetter
	}

	err := handler(ctx, msg)
	switch {
	case err == nil:
		return dispositionAck
	case IsPermanent(err):
		c.logger.Warn("dead-lettering message after permanent failure",
			zap.Error(err),
			zap.String("batchId", msg.BatchID),
		)
		return dispositionDeadLetter
	default:
		c.logger.Info("requeueing message after transient failure",
			zap.Error(err),
			zap.String("batchId", msg.BatchID),
			zap.Bool("redelivered", d.Redelivered),
		)
		return dispositionRequeue
	}
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
