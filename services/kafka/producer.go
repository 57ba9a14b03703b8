package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"admissions-crm/logger"
	"admissions-crm/models"

	"github.com/segmentio/kafka-go"
)

const publishAttempts = 3

var errKafkaDisabled = errors.New("kafka is disabled")

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterSink stores messages that could not be delivered or handled.
type DeadLetterSink interface {
	Insert(ctx context.Context, m *models.DLQMessage) error
}

// Producer publishes JSON events. With no brokers configured it is disabled
// and Publish is a logged no-op.
type Producer struct {
	mu        sync.Mutex
	writer    messageWriter
	dlq       DeadLetterSink
	connected bool
	backoff   func(attempt int) time.Duration
	sleep     func(time.Duration)
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a producer for brokers. Topics are created in the
// background when the brokers allow it.
func NewProducer(brokers []string, topics []string, dlq DeadLetterSink) *Producer {
	p := newProducer(nil, dlq)
	if len(brokers) == 0 {
		logger.Info("Kafka is disabled (KAFKA_BROKERS is empty)")
		return p
	}

	ensureTopicsExist(brokers, topics)
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		Async:        false,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	p.connected = true
	logger.Info("Kafka producer initialized. Brokers=%v", brokers)
	return p
}

func newProducer(w messageWriter, dlq DeadLetterSink) *Producer {
	return &Producer{
		writer: w,
		dlq:    dlq,
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
		sleep: time.Sleep,
	}
}

// Enabled reports whether brokers were configured.
func (p *Producer) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer != nil
}

// Publish marshals evt and writes it to topic with up to three attempts and
// exponential backoff. After the last failure the payload goes to the DLQ.
func (p *Producer) Publish(ctx context.Context, topic, key string, evt Event) error {
	if !p.Enabled() {
		logger.Debug("Kafka disabled, dropping %s event for key %s", evt.Name, key)
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Error("Error marshaling Kafka message: %v", err)
		return err
	}
	return p.PublishRaw(ctx, topic, key, payload)
}

// PublishRaw writes an already encoded payload, dead-lettering it when every
// attempt fails.
func (p *Producer) PublishRaw(ctx context.Context, topic, key string, payload []byte) error {
	err := p.write(ctx, topic, key, payload)
	if err != nil {
		logger.Info("Sending failed message to DLQ. Topic: %s, Key: %s", topic, key)
		p.storeDeadLetter(ctx, topic, key, payload, err)
	}
	return err
}

// Republish writes a payload taken from the DLQ. Failures are returned and
// not stored again.
func (p *Producer) Republish(ctx context.Context, topic, key string, payload []byte) error {
	if !p.Enabled() {
		return errKafkaDisabled
	}
	return p.write(ctx, topic, key, payload)
}

func (p *Producer) write(ctx context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	var lastErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.writer.WriteMessages(writeCtx, msg)
		cancel()

		if err == nil {
			p.connected = true
			return nil
		}

		lastErr = err
		p.connected = false
		logger.Warn("Kafka publish attempt %d failed: %v", attempt+1, err)

		if attempt < publishAttempts-1 {
			p.sleep(p.backoff(attempt))
		}
	}
	return lastErr
}

func (p *Producer) storeDeadLetter(ctx context.Context, topic, key string, payload []byte, cause error) {
	if p.dlq == nil {
		logger.Warn("No DLQ store configured, dropping message for topic %s", topic)
		return
	}
	err := p.dlq.Insert(context.WithoutCancel(ctx), &models.DLQMessage{
		Topic:        topic,
		MessageKey:   key,
		Payload:      string(payload),
		ErrorMessage: cause.Error(),
	})
	if err != nil {
		logger.Error("Failed to send message to DLQ: %v", err)
	}
}

// IsConnected reports whether the last write succeeded.
func (p *Producer) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected && p.writer != nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// ensureTopicsExist creates topics in a background goroutine, retrying with
// exponential backoff while the brokers start up.
func ensureTopicsExist(brokers, topics []string) {
	if len(topics) == 0 {
		return
	}
	go func() {
		maxRetries := 5
		for attempt := 0; attempt < maxRetries; attempt++ {
			time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * time.Second)

			conn, err := kafka.Dial("tcp", brokers[0])
			if err != nil {
				if attempt == maxRetries-1 {
					logger.Warn("Could not connect to Kafka broker for topic creation after %d attempts: %v", maxRetries, err)
				}
				continue
			}

			ok := 0
			for _, topic := range topics {
				err := conn.CreateTopics(kafka.TopicConfig{
					Topic:             topic,
					NumPartitions:     1,
					ReplicationFactor: 1,
				})
				if err == nil || strings.Contains(err.Error(), "already exists") {
					ok++
				}
			}
			conn.Close()

			if ok == len(topics) {
				logger.Info("Kafka topics ready: %v", topics)
				return
			}
		}
	}()
}
