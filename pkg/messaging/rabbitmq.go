package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Transport errors surfaced to callers. Publish failures are terminal for
// the record being dispatched, so callers only need to distinguish the
// broad categories.
var (
	ErrUnavailable     = errors.New("message channel unavailable")
	ErrPublishTimeout  = errors.New("publish timed out")
	ErrMessageTooLarge = errors.New("message exceeds size limit")
)

// MaxMessageBytes is the largest payload accepted for publishing. Broker-side
// limits are higher; this bound keeps dispatch payloads honest.
const MaxMessageBytes = 128 * 1024

// Config holds configuration for the RabbitMQ client.
type Config struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatTimeout  time.Duration
	PublishTimeout    time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 60 * time.Second
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = 10 * time.Second
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 10 * time.Second
	}
}

// RabbitMQClient wraps an AMQP connection with automatic reconnection,
// DLQ-backed queue declaration, bounded publishes, and manual-ack consumers.
type RabbitMQClient struct {
	config Config
	log    *slog.Logger

	mu              sync.RWMutex
	conn            *amqp.Connection
	ch              *amqp.Channel
	notifyConnClose chan *amqp.Error
	isReconnecting  bool
	isClosed        bool
}

func NewRabbitMQClient(config Config, log *slog.Logger) (*RabbitMQClient, error) {
	config.applyDefaults()

	client := &RabbitMQClient{config: config, log: log}
	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.handleReconnect()

	return client, nil
}

func (r *RabbitMQClient) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("connecting to rabbitmq", "url", maskURL(r.config.URL))

	conn, err := amqp.DialConfig(r.config.URL, amqp.Config{
		Heartbeat: r.config.HeartbeatTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	r.conn = conn
	r.ch = ch
	r.notifyConnClose = make(chan *amqp.Error)
	r.conn.NotifyClose(r.notifyConnClose)
	r.isReconnecting = false

	r.log.Info("connected to rabbitmq")
	return nil
}

func (r *RabbitMQClient) handleReconnect() {
	r.mu.RLock()
	if r.isClosed {
		r.mu.RUnlock()
		return
	}
	notifyClose := r.notifyConnClose
	r.mu.RUnlock()

	err := <-notifyClose
	if err != nil {
		r.log.Warn("rabbitmq connection closed, reconnecting", "error", err)
		r.reconnect()
	}
}

func (r *RabbitMQClient) reconnect() {
	r.mu.Lock()
	r.isReconnecting = true
	r.mu.Unlock()

	backoff := r.config.ReconnectDelay

	for {
		r.mu.RLock()
		if r.isClosed {
			r.mu.RUnlock()
			return
		}
		r.mu.RUnlock()

		if err := r.connect(); err == nil {
			go r.handleReconnect()
			return
		}

		r.log.Warn("failed to reconnect to rabbitmq", "retry_in", backoff)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > r.config.MaxReconnectDelay {
			backoff = r.config.MaxReconnectDelay
		}
	}
}

// DeclareQueueWithDLQ declares a durable queue plus a companion dead-letter
// queue named "<name>.dlq". Rejected deliveries beyond requeue land there.
func (r *RabbitMQClient) DeclareQueueWithDLQ(name string) (amqp.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ch == nil {
		return amqp.Queue{}, ErrUnavailable
	}

	dlqName := name + ".dlq"

	if _, err := r.ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	return r.ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	})
}

// Publish sends a JSON payload to the named queue with a bounded wait.
// Timeouts and unavailable connections are reported as transport errors;
// there is no internal retry.
func (r *RabbitMQClient) Publish(ctx context.Context, queueName string, body []byte) error {
	if len(body) > MaxMessageBytes {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(body))
	}

	r.mu.RLock()
	if r.isReconnecting || r.ch == nil {
		r.mu.RUnlock()
		return ErrUnavailable
	}
	ch := r.ch
	r.mu.RUnlock()

	pubCtx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
	defer cancel()

	err := ch.PublishWithContext(pubCtx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrPublishTimeout
	}
	return err
}

// Acknowledger settles one delivery with the broker.
type Acknowledger interface {
	Ack() error
	Nack(requeue bool) error
}

// Delivery is one received message with explicit acknowledgment control.
// Handlers must call exactly one of Ack or Nack.
type Delivery struct {
	Body []byte
	ack  Acknowledger
}

// NewDelivery wraps a payload with its acknowledger. A nil acknowledger
// makes Ack and Nack no-ops.
func NewDelivery(body []byte, ack Acknowledger) Delivery {
	return Delivery{Body: body, ack: ack}
}

func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack.Ack()
}

func (d Delivery) Nack(requeue bool) error {
	if d.ack == nil {
		return nil
	}
	return d.ack.Nack(requeue)
}

type amqpAcknowledger struct {
	d amqp.Delivery
}

func (a amqpAcknowledger) Ack() error              { return a.d.Ack(false) }
func (a amqpAcknowledger) Nack(requeue bool) error { return a.d.Nack(false, requeue) }

// ConsumeWithContext delivers messages from the named queue to the handler
// until the context is cancelled. Acknowledgment is the handler's job; this
// lets consumers ack a delivery before finishing the work it triggered.
func (r *RabbitMQClient) ConsumeWithContext(ctx context.Context, queueName string, handler func(Delivery)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.mu.RLock()
		if r.isReconnecting || r.ch == nil {
			r.mu.RUnlock()
			time.Sleep(time.Second)
			continue
		}
		ch := r.ch
		r.mu.RUnlock()

		msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
		if err != nil {
			r.log.Warn("failed to register a consumer", "queue", queueName, "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case d, ok := <-msgs:
				if !ok {
					r.log.Warn("consumer channel closed, waiting for reconnection", "queue", queueName)
					time.Sleep(r.config.ReconnectDelay)
					goto Reconnect
				}
				handler(NewDelivery(d.Body, amqpAcknowledger{d: d}))
			}
		}

	Reconnect:
	}
}

// Close implements shutdown.Closeable.
func (r *RabbitMQClient) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// IsHealthy reports whether the underlying connection is usable.
func (r *RabbitMQClient) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed() && !r.isReconnecting
}

func maskURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		prefixParts := strings.Split(parts[0], "://")
		if len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}
