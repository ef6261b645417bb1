package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/codequest/internal/domain"
)

// EventHandler processes one progress event
type EventHandler func(ctx context.Context, ev *domain.ProgressEvent) error

// Consumer runs a pool of workers over the durable progress queue
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	queue      string
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Queue    string        // Queue to consume, defaults to the progress queue
	Workers  int           // Number of concurrent workers
	Prefetch int           // Prefetch count per worker
	Timeout  time.Duration // Per-event handler timeout
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Queue:    ProgressQueueName,
		Workers:  2,
		Prefetch: 4,
		Timeout:  10 * time.Second,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Queue == "" {
		cfg.Queue = def.Queue
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return cfg
}

// NewConsumer creates a new event consumer
func NewConsumer(conn *Connection, handler EventHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		conn:     conn,
		handler:  handler,
		queue:    cfg.Queue,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.Timeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch*c.workers, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting event consumer", "queue", c.queue, "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

// worker processes messages from the queue
func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// acknowledger is the part of amqp.Delivery the consumer settles through
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
}

// processMessage handles a single message
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	c.handle(ctx, workerID, msg.Body, msg.Redelivered, &msg)
}

// handle decodes and dispatches body. A failing handler gets one
// redelivery; malformed messages are dropped.
func (c *Consumer) handle(ctx context.Context, workerID int, body []byte, redelivered bool, ack acknowledger) {
	var ev domain.ProgressEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		slog.Error("failed to unmarshal event",
			"worker_id", workerID,
			"error", err,
		)
		_ = ack.Reject(false)
		return
	}

	evCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.handler(evCtx, &ev); err != nil {
		slog.Error("event handling failed",
			"worker_id", workerID,
			"event_id", ev.ID,
			"type", ev.Type,
			"redelivered", redelivered,
			"error", err,
		)
		_ = ack.Nack(false, !redelivered)
		return
	}

	if err := ack.Ack(false); err != nil {
		slog.Error("failed to ack message",
			"worker_id", workerID,
			"event_id", ev.ID,
			"error", err,
		)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}

// Subscriber fans events from a tail queue out to per-type handlers
type Subscriber struct {
	conn       *Connection
	handlers   map[string][]SubscriberHandler
	handlersMu sync.RWMutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// SubscriberHandler receives a decoded event
type SubscriberHandler func(ev *domain.ProgressEvent)

// NewSubscriber creates a subscriber
func NewSubscriber(conn *Connection) *Subscriber {
	return &Subscriber{
		conn:     conn,
		handlers: make(map[string][]SubscriberHandler),
	}
}

// Subscribe registers handler for eventType, or for every event when
// eventType is AllEvents.
func (s *Subscriber) Subscribe(eventType string, handler SubscriberHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[eventType] = append(s.handlers[eventType], handler)
}

// Unsubscribe removes every handler for eventType
func (s *Subscriber) Unsubscribe(eventType string) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	delete(s.handlers, eventType)
}

// Start declares a tail queue and begins dispatching
func (s *Subscriber) Start(ctx context.Context) error {
	ctx, s.cancelFunc = context.WithCancel(ctx)

	name, err := s.conn.DeclareTailQueue(AllEvents)
	if err != nil {
		return err
	}

	msgs, err := s.conn.Channel().Consume(
		name,
		"",    // consumer tag
		true,  // auto-ack (tailing is best effort)
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start subscriber: %w", err)
	}

	s.wg.Add(1)
	go s.consume(ctx, msgs)

	return nil
}

func (s *Subscriber) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			s.dispatch(msg.Body)
		}
	}
}

func (s *Subscriber) dispatch(body []byte) {
	var ev domain.ProgressEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		slog.Error("failed to unmarshal event", "error", err)
		return
	}

	s.handlersMu.RLock()
	handlers := append(append([]SubscriberHandler(nil), s.handlers[ev.Type]...), s.handlers[AllEvents]...)
	s.handlersMu.RUnlock()

	for _, h := range handlers {
		h(&ev)
	}
}

// Stop stops the subscriber
func (s *Subscriber) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
}
