package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"admissions-crm/logger"
	"admissions-crm/models"
	"admissions-crm/repository"
)

// maxAutoRetries bounds how often the background loop retries one message.
const maxAutoRetries = 5

// DLQStore is the persistence the DLQ service needs.
type DLQStore interface {
	DeadLetterSink
	GetByID(ctx context.Context, id int64) (*models.DLQMessage, error)
	ListUnresolved(ctx context.Context, limit int) ([]*models.DLQMessage, error)
	RecordRetry(ctx context.Context, id int64, lastErr string) error
	Resolve(ctx context.Context, id int64, notes string) error
	Stats(ctx context.Context) (*repository.DLQStats, error)
}

type rawPublisher interface {
	Republish(ctx context.Context, topic, key string, payload []byte) error
}

type dispatcher interface {
	HasHandler(event string) bool
	Dispatch(ctx context.Context, topic, key string, value []byte) error
}

// DLQService lists, retries and resolves dead letters. A message whose
// event has a local handler is reprocessed; anything else is republished.
type DLQService struct {
	store    DLQStore
	producer rawPublisher
	consumer dispatcher
}

func NewDLQService(store DLQStore, producer rawPublisher, consumer dispatcher) *DLQService {
	return &DLQService{store: store, producer: producer, consumer: consumer}
}

func (s *DLQService) List(ctx context.Context, limit int) ([]*models.DLQMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListUnresolved(ctx, limit)
}

func (s *DLQService) Stats(ctx context.Context) (*repository.DLQStats, error) {
	return s.store.Stats(ctx)
}

func (s *DLQService) Resolve(ctx context.Context, id int64, notes string) error {
	if err := s.store.Resolve(ctx, id, notes); err != nil {
		return err
	}
	logger.Info("DLQ message %d marked as resolved", id)
	return nil
}

// Retry reprocesses one message. On success it is resolved; on failure the
// retry count goes up and the error is returned.
func (s *DLQService) Retry(ctx context.Context, id int64) error {
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.Resolved {
		return nil
	}
	return s.retry(ctx, m, "Manually retried successfully")
}

func (s *DLQService) retry(ctx context.Context, m *models.DLQMessage, note string) error {
	if err := s.redeliver(ctx, m); err != nil {
		if recErr := s.store.RecordRetry(ctx, m.ID, err.Error()); recErr != nil {
			logger.Error("Error updating retry count for DLQ message %d: %v", m.ID, recErr)
		}
		return fmt.Errorf("retrying dlq message %d: %w", m.ID, err)
	}
	if err := s.store.RecordRetry(ctx, m.ID, ""); err != nil {
		return err
	}
	return s.store.Resolve(ctx, m.ID, note)
}

func (s *DLQService) redeliver(ctx context.Context, m *models.DLQMessage) error {
	var head struct {
		Name string `json:"event"`
	}
	_ = json.Unmarshal([]byte(m.Payload), &head)

	if s.consumer != nil && head.Name != "" && s.consumer.HasHandler(head.Name) {
		return s.consumer.Dispatch(ctx, m.Topic, m.MessageKey, []byte(m.Payload))
	}
	if s.producer == nil {
		return fmt.Errorf("no handler or producer for topic %s", m.Topic)
	}
	return s.producer.Republish(ctx, m.Topic, m.MessageKey, []byte(m.Payload))
}

// RetryUnresolved makes one pass over up to limit unresolved messages that
// have not exhausted their retries. It returns how many were resolved.
func (s *DLQService) RetryUnresolved(ctx context.Context, limit int) (int, error) {
	messages, err := s.store.ListUnresolved(ctx, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, m := range messages {
		if m.RetryCount >= maxAutoRetries {
			continue
		}
		logger.Info("Auto-retrying DLQ message %d (attempt %d/%d)", m.ID, m.RetryCount+1, maxAutoRetries)
		if err := s.retry(ctx, m, "Auto-retried successfully"); err != nil {
			logger.Warn("%v", err)
			continue
		}
		resolved++
	}
	if len(messages) > 0 {
		logger.Info("DLQ auto-retry completed: processed %d messages, %d resolved", len(messages), resolved)
	}
	return resolved, nil
}

// StartAutoRetry retries unresolved messages every interval until ctx ends.
func (s *DLQService) StartAutoRetry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logger.Info("DLQ auto-retry started (every %s)", interval)
		for {
			select {
			case <-ticker.C:
				if _, err := s.RetryUnresolved(ctx, 10); err != nil {
					logger.Error("DLQ auto-retry failed: %v", err)
				}
			case <-ctx.Done():
				logger.Info("DLQ auto-retry stopped")
				return
			}
		}
	}()
}
