package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) PublishGenerationRequest(ctx context.Context, msg GenerationRequestMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid generation request: %w", err)
	}
	return p.publish(ctx, GenerateQueue, msg, msg.CorrelationID, PriorityValue(msg.Source))
}

func (p *RabbitMQPublisher) PublishRoutesGenerated(ctx context.Context, evt RoutesGeneratedEvent) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("invalid routes generated event: %w", err)
	}
	return p.publish(ctx, GeneratedQueue, evt, evt.CorrelationID, 0)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, queue string, body any, correlationID string, priority uint8) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     uuid.NewString(),
		CorrelationId: correlationID,
		Priority:      priority,
		Body:          payload,
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message to queue %q: %w", queue, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
