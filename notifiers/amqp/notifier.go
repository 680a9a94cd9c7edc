// Package amqp provides a Notifier that publishes engine events to a
// RabbitMQ exchange, so remote dashboards or audit consumers can follow
// the queue without being attached to the process.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dnstools/requestq/errors"
	"github.com/dnstools/requestq/jsonsafe"
)

// event is the wire form of one engine event.
type event struct {
	Event      string  `json:"event"`
	ID         string  `json:"id,omitempty"`
	OK         *bool   `json:"ok,omitempty"`
	Payload    any     `json:"payload,omitempty"`
	RetryAfter float64 `json:"retryAfterSeconds,omitempty"`
	Message    string  `json:"message,omitempty"`
	At         string  `json:"at"`
}

// Notifier implements core.Notifier over an AMQP connection. Publish
// failures are logged and dropped; the engine never blocks on the
// broker.
type Notifier struct {
	options Options
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewNotifier creates a new AMQP notifier
func NewNotifier(options Options) *Notifier {
	if options.ExchangeType == "" {
		options.ExchangeType = "topic"
	}
	return &Notifier{options: options}
}

// Connect establishes the connection and declares the exchange
func (n *Notifier) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(n.options.URI)
	if err != nil {
		return errors.NewConnectionError(n.options.URI,
			fmt.Errorf("failed to connect to RabbitMQ: %w", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.NewConnectionError(n.options.URI,
			fmt.Errorf("failed to open channel: %w", err))
	}

	if err := channel.ExchangeDeclare(
		n.options.Exchange,
		n.options.ExchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return errors.NewConnectionError(n.options.URI,
			fmt.Errorf("failed to declare exchange: %w", err))
	}

	n.mu.Lock()
	n.conn = conn
	n.channel = channel
	n.mu.Unlock()
	return nil
}

// Close closes the channel and connection
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		n.channel.Close()
		n.channel = nil
	}
	if n.conn != nil {
		err := n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}

// Health checks the connection
func (n *Notifier) Health() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil || n.conn.IsClosed() {
		return errors.ErrNotConnected
	}
	return nil
}

func (n *Notifier) ItemStarted(id string) {
	n.publish("item.started", event{Event: "item.started", ID: id})
}

func (n *Notifier) ItemFinished(id string, ok bool, payload any) {
	n.publish("item.finished", event{
		Event:   "item.finished",
		ID:      id,
		OK:      &ok,
		Payload: jsonsafe.Sanitize(payload),
	})
}

func (n *Notifier) QueuePaused() {
	n.publish("queue.paused", event{Event: "queue.paused"})
}

func (n *Notifier) QueueResumed() {
	n.publish("queue.resumed", event{Event: "queue.resumed"})
}

func (n *Notifier) QueueEmpty() {
	n.publish("queue.empty", event{Event: "queue.empty"})
}

func (n *Notifier) QueueChanged() {
	n.publish("queue.changed", event{Event: "queue.changed"})
}

func (n *Notifier) RateLimited(retryAfter time.Duration, message string) {
	n.publish("queue.ratelimited", event{
		Event:      "queue.ratelimited",
		RetryAfter: retryAfter.Seconds(),
		Message:    message,
	})
}

// publish sends one event, best effort.
func (n *Notifier) publish(key string, ev event) {
	n.mu.Lock()
	channel := n.channel
	n.mu.Unlock()

	if channel == nil {
		return
	}

	ev.At = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to encode queue event", "event", ev.Event, "error", err)
		return
	}

	routingKey := key
	if n.options.RoutingKeyPrefix != "" {
		routingKey = n.options.RoutingKeyPrefix + "." + key
	}

	if err := channel.Publish(
		n.options.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	); err != nil {
		slog.Error("Failed to publish queue event", "event", ev.Event, "error", err)
	}
}
