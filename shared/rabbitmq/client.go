// shared/rabbitmq/client.go
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitmqClient owns one connection and one confirm-mode channel.
type RabbitmqClient struct {
	conn *amqp.Connection
	chn  *amqp.Channel
}

func NewClient(url string) (*RabbitmqClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	// Publisher confirms: Publish returns only after the broker took the message.
	if err := chn.Confirm(false); err != nil {
		_ = chn.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &RabbitmqClient{conn: conn, chn: chn}, nil
}

func (r *RabbitmqClient) Close() error {
	if err := r.chn.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// QueueOption adjusts a queue declaration.
type QueueOption func(amqp.Table)

// WithDeadLetter routes rejected or expired messages to queue deadLetter
// through the default exchange.
func WithDeadLetter(deadLetter string) QueueOption {
	return func(args amqp.Table) {
		args["x-dead-letter-exchange"] = ""
		args["x-dead-letter-routing-key"] = deadLetter
	}
}

func queueArgs(opts []QueueOption) amqp.Table {
	if len(opts) == 0 {
		return nil
	}
	args := amqp.Table{}
	for _, opt := range opts {
		opt(args)
	}
	return args
}

// CreateQueue declares a durable queue.
func (r *RabbitmqClient) CreateQueue(queueName string, opts ...QueueOption) error {
	_, err := r.chn.QueueDeclare(
		queueName,       // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		queueArgs(opts), // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return nil
}

// SetPrefetch caps how many unacked deliveries the broker pushes to this
// channel's consumers.
func (r *RabbitmqClient) SetPrefetch(count int) error {
	return r.chn.Qos(count, 0, false)
}

// Publish sends a persistent JSON message to queueName and waits for the
// broker confirm.
func (r *RabbitmqClient) Publish(ctx context.Context, queueName string, body []byte) error {
	confirm, err := r.chn.PublishWithDeferredConfirmWithContext(
		ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("rabbitmq nacked message for queue %s", queueName)
	}
	return nil
}

// Consume starts listening on a queue with manual acks.
func (r *RabbitmqClient) Consume(queueName string) (<-chan amqp.Delivery, error) {
	return r.chn.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
}
