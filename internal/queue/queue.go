package queue

import (
	"context"
	"errors"
)

const (
	// GenerateQueue carries route generation requests to the worker.
	GenerateQueue = "routes.generate"
	// GeneratedQueue carries RoutesGeneratedEvent notifications for downstream consumers.
	GeneratedQueue = "routes.generated"
)

// Publisher publishes route engine messages.
type Publisher interface {
	PublishGenerationRequest(ctx context.Context, msg GenerationRequestMessage) error
	PublishRoutesGenerated(ctx context.Context, evt RoutesGeneratedEvent) error
	Close() error
}

// MessageHandler handles a consumed generation request.
type MessageHandler func(ctx context.Context, msg GenerationRequestMessage) error

// Consumer consumes generation requests from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// queueSpec describes one durable work queue and its dead-letter twin.
type queueSpec struct {
	name        string
	maxPriority int32
}

// Generation requests are prioritized by source; events are not.
var topology = []queueSpec{
	{name: GenerateQueue, maxPriority: 2},
	{name: GeneratedQueue},
}

// DLQName returns the dead-letter queue name for a queue, e.g. dlq.routes.generate.
func DLQName(queue string) string {
	return "dlq." + queue
}

// WorkQueueNames returns all work queues.
func WorkQueueNames() []string {
	names := make([]string, 0, len(topology))
	for _, spec := range topology {
		names = append(names, spec.name)
	}
	return names
}

// DLQNames returns all dead-letter queues.
func DLQNames() []string {
	names := WorkQueueNames()
	for i, name := range names {
		names[i] = DLQName(name)
	}
	return names
}

// PriorityValue maps a request source to RabbitMQ message priority. Requests
// made by an operator jump ahead of scheduled ones.
func PriorityValue(source Source) uint8 {
	switch source {
	case SourceAPI:
		return 2
	case SourceScheduler:
		return 1
	default:
		return 0
	}
}

// PermanentError marks a handler failure that redelivery cannot fix. The
// consumer dead-letters such messages instead of requeueing them.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
