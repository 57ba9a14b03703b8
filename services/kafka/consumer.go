package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"admissions-crm/logger"
	"admissions-crm/models"

	"github.com/segmentio/kafka-go"
)

// Handler processes one event. A returned error sends the message to the DLQ.
type Handler func(ctx context.Context, msg Message) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads a consumer group over a set of topics and routes each
// event to the handler registered for its name.
type Consumer struct {
	mu       sync.Mutex
	reader   messageReader
	handlers map[string]Handler
	dlq      DeadLetterSink
	running  bool
}

// NewConsumer joins groupID over topics. With no brokers the consumer is
// created disabled; handlers can still be invoked through Handle.
func NewConsumer(brokers []string, groupID string, topics []string, dlq DeadLetterSink) *Consumer {
	c := &Consumer{handlers: map[string]Handler{}, dlq: dlq}
	if len(brokers) == 0 {
		logger.Info("Kafka consumer is disabled (KAFKA_BROKERS is empty)")
		return c
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:          brokers,
		GroupTopics:      topics,
		GroupID:          groupID,
		StartOffset:      kafka.LastOffset,
		CommitInterval:   time.Second,
		MaxBytes:         10e6,
		SessionTimeout:   20 * time.Second,
		ReadBackoffMin:   100 * time.Millisecond,
		ReadBackoffMax:   1 * time.Second,
		QueueCapacity:    100,
		RebalanceTimeout: 60 * time.Second,
	})
	logger.Info("Kafka consumer initialized. Brokers=%v, Topics=%v, ConsumerGroup=%s", brokers, topics, groupID)
	return c
}

// Register binds a handler to an event name, replacing any previous one.
func (c *Consumer) Register(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
	logger.Debug("Kafka handler registered for %s", event)
}

// HasHandler reports whether an event name has a handler.
func (c *Consumer) HasHandler(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[event]
	return ok
}

// Run reads until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) {
	c.mu.Lock()
	if c.reader == nil || c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logger.Info("Kafka consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				logger.Info("Kafka consumer stopped")
				return
			}
			if strings.Contains(err.Error(), "Group Coordinator Not Available") {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			logger.Warn("Kafka read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		c.Handle(ctx, msg.Topic, string(msg.Key), msg.Value)
	}
}

// Handle decodes and dispatches one raw message. It reports whether the
// message was processed; failures are stored in the DLQ.
func (c *Consumer) Handle(ctx context.Context, topic, key string, value []byte) bool {
	if err := c.Dispatch(ctx, topic, key, value); err != nil {
		logger.Error("Kafka message on %s failed: %v", topic, err)
		c.deadLetter(ctx, topic, key, value, err)
		return false
	}
	return true
}

// Dispatch runs the handler for a raw message without touching the DLQ.
func (c *Consumer) Dispatch(ctx context.Context, topic, key string, value []byte) error {
	var msg Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if msg.Name == "" {
		return errors.New("message does not contain valid event type")
	}
	msg.Topic, msg.Key = topic, key

	c.mu.Lock()
	h, ok := c.handlers[msg.Name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown event type: %s", msg.Name)
	}

	if err := h(ctx, msg); err != nil {
		return fmt.Errorf("handler error for %s: %w", msg.Name, err)
	}
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, topic, key string, value []byte, cause error) {
	if c.dlq == nil {
		return
	}
	err := c.dlq.Insert(context.WithoutCancel(ctx), &models.DLQMessage{
		Topic:        topic,
		MessageKey:   key,
		Payload:      string(value),
		ErrorMessage: cause.Error(),
	})
	if err != nil {
		logger.Error("Failed to store DLQ message: %v", err)
	}
}

// IsRunning reports whether Run is active.
func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Close closes the reader, which also ends Run.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
