package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dlxExchangeName = "route-engine.dlx"
	connectTimeout  = 15 * time.Second
)

// RabbitMQ owns the broker connection shared by the publisher and the
// consumer. A dropped connection is redialed lazily by the next caller and
// the topology is declared once per fresh connection.
type RabbitMQ struct {
	url  string
	dial func(url string) (*amqp.Connection, error)

	// mu is held across a redial so concurrent callers wait for one dial.
	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitMQ(ctx context.Context, url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := &RabbitMQ{url: url, dial: amqp.Dial}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if _, err := r.connection(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// Ping reports whether the broker connection is usable.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	ch, err := r.channel(ctx)
	if err != nil {
		return err
	}
	return ch.Close()
}

// channel opens a channel, redialing once if the cached connection turns out
// to be dead.
func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	for attempt := 0; ; attempt++ {
		conn, err := r.connection(ctx)
		if err != nil {
			return nil, err
		}

		ch, err := conn.Channel()
		if err == nil {
			return ch, nil
		}
		if attempt > 0 {
			return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
		}
		r.discard(conn)
	}
}

func (r *RabbitMQ) connection(ctx context.Context) (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn, nil
	}

	b := newBackoff()
	for {
		conn, err := r.dial(r.url)
		if err == nil {
			if err := declareTopology(conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
			r.conn = conn
			return conn, nil
		}

		if err := sleepContext(ctx, b.Next()); err != nil {
			return nil, fmt.Errorf("rabbitmq dial canceled: %w", err)
		}
	}
}

func (r *RabbitMQ) discard(conn *amqp.Connection) {
	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}

func declareTopology(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.ExchangeDeclare(dlxExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}

	for _, q := range topology {
		dlq := DLQName(q.name)
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dlq %q: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, q.name, dlxExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind dlq %q: %w", dlq, err)
		}
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, queueArgs(q)); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", q.name, err)
		}
	}
	return nil
}

func queueArgs(q queueSpec) amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    dlxExchangeName,
		"x-dead-letter-routing-key": q.name,
	}
	if q.maxPriority > 0 {
		args["x-max-priority"] = q.maxPriority
	}
	return args
}
