package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paperglass/paperglass/pkg/logging"
)

// Redis key prefixes
const (
	keyPrefixQueue      = "paperglass:queue:"      // main queue (sorted set by priority)
	keyPrefixProcessing = "paperglass:processing:" // messages being processed
	keyPrefixMessage    = "paperglass:msg:"        // message payload
	keyPrefixDLQ        = "paperglass:dlq:"        // dead letter queue
)

// RedisQueue implements Queue using Redis sorted sets. Higher priority
// messages dequeue first.
type RedisQueue struct {
	client     *redis.Client
	name       string
	config     QueueConfig
	retry      RetryPolicy
	logger     logging.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(client *redis.Client, config QueueConfig, logger logging.Logger) *RedisQueue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{
		client:     client,
		name:       config.Name,
		config:     config,
		retry:      DefaultRetryPolicy(),
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Name returns the queue name.
func (q *RedisQueue) Name() string {
	return q.name
}

// Enqueue adds a message to the queue.
func (q *RedisQueue) Enqueue(msg Message) error {
	return q.EnqueueBatch([]Message{msg})
}

// EnqueueBatch adds multiple messages to the queue in one transaction.
func (q *RedisQueue) EnqueueBatch(msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	pipe := q.client.TxPipeline()
	queueKey := keyPrefixQueue + q.name
	now := time.Now()

	for _, msg := range msgs {
		messageID := uuid.New().String()

		msgBytes, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}

		qm := &QueuedMessage{
			ID:          messageID,
			Message:     msgBytes,
			MessageType: msg.GetMessageType(),
			Priority:    msg.GetPriority(),
			EnqueuedAt:  now,
		}
		qmBytes, err := json.Marshal(qm)
		if err != nil {
			return fmt.Errorf("marshal queued message: %w", err)
		}

		msgKey := keyPrefixMessage + q.name + ":" + messageID
		pipe.Set(q.ctx, msgKey, qmBytes, q.config.RetentionPeriod)
		pipe.ZAdd(q.ctx, queueKey, redis.Z{Score: priorityScore(msg.GetPriority(), now), Member: messageID})
	}

	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	q.logger.Debug("messages enqueued",
		logging.F("queue", q.name),
		logging.F("count", len(msgs)))
	return nil
}

// priorityScore orders the sorted set by priority first, then enqueue time.
func priorityScore(p Priority, t time.Time) float64 {
	return float64(p)*1e12 + float64(t.UnixNano())
}

// Dequeue retrieves messages from the queue. It returns up to maxMessages
// and blocks for at most timeout when the queue is empty.
func (q *RedisQueue) Dequeue(maxMessages int, timeout time.Duration) ([]*QueuedMessage, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}

	queueKey := keyPrefixQueue + q.name
	processingKey := keyPrefixProcessing + q.name
	deadline := time.Now().Add(timeout)

	var messages []*QueuedMessage

	for time.Now().Before(deadline) && len(messages) < maxMessages {
		result, err := q.client.ZPopMax(q.ctx, queueKey, 1).Result()
		if err == redis.Nil || len(result) == 0 {
			select {
			case <-time.After(100 * time.Millisecond):
				continue
			case <-q.ctx.Done():
				return messages, ErrQueueClosed
			}
		}
		if err != nil {
			return messages, fmt.Errorf("pop from queue: %w", err)
		}

		messageID, _ := result[0].Member.(string)
		msgKey := keyPrefixMessage + q.name + ":" + messageID

		data, err := q.client.Get(q.ctx, msgKey).Bytes()
		if err == redis.Nil {
			// Payload expired; drop the stale reference.
			continue
		}
		if err != nil {
			return messages, fmt.Errorf("get message payload: %w", err)
		}

		var qm QueuedMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			return messages, fmt.Errorf("unmarshal message: %w", err)
		}

		visibleAfter := time.Now().Add(q.config.VisibilityTimeout)
		qm.VisibleAfter = visibleAfter

		updatedData, _ := json.Marshal(qm)
		pipe := q.client.TxPipeline()
		pipe.Set(q.ctx, msgKey, updatedData, q.config.RetentionPeriod)
		pipe.ZAdd(q.ctx, processingKey, redis.Z{
			Score:  float64(visibleAfter.UnixNano()),
			Member: messageID,
		})
		if _, err := pipe.Exec(q.ctx); err != nil {
			return messages, fmt.Errorf("move to processing: %w", err)
		}

		messages = append(messages, &qm)
	}

	return messages, nil
}

// Ack acknowledges successful processing of a message.
func (q *RedisQueue) Ack(messageID string) error {
	processingKey := keyPrefixProcessing + q.name
	msgKey := keyPrefixMessage + q.name + ":" + messageID

	pipe := q.client.TxPipeline()
	pipe.ZRem(q.ctx, processingKey, messageID)
	pipe.Del(q.ctx, msgKey)
	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	return nil
}

// Nack indicates processing failure. The message re-enqueues with backoff
// until MaxRetries, then moves to the dead letter queue.
func (q *RedisQueue) Nack(messageID string) error {
	processingKey := keyPrefixProcessing + q.name
	msgKey := keyPrefixMessage + q.name + ":" + messageID

	data, err := q.client.Get(q.ctx, msgKey).Bytes()
	if err == redis.Nil {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}

	var qm QueuedMessage
	if err := json.Unmarshal(data, &qm); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}

	qm.RetryCount++
	if qm.RetryCount >= q.config.MaxRetries {
		return q.MoveToDeadLetter(messageID, "max retries exceeded")
	}

	backoff := q.retry.CalculateBackoff(qm.RetryCount)
	qm.VisibleAfter = time.Now().Add(backoff)
	updatedData, _ := json.Marshal(qm)

	queueKey := keyPrefixQueue + q.name
	pipe := q.client.TxPipeline()
	pipe.ZRem(q.ctx, processingKey, messageID)
	pipe.Set(q.ctx, msgKey, updatedData, q.config.RetentionPeriod)
	pipe.ZAdd(q.ctx, queueKey, redis.Z{
		Score:  float64(qm.Priority)*1e12 + float64(qm.VisibleAfter.UnixNano()),
		Member: messageID,
	})
	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("nack message: %w", err)
	}

	q.logger.Debug("message requeued",
		logging.F("queue", q.name),
		logging.F("message_id", messageID),
		logging.F("retry", qm.RetryCount),
		logging.F("backoff", backoff.String()))
	return nil
}

// MoveToDeadLetter moves a message to the dead letter queue.
func (q *RedisQueue) MoveToDeadLetter(messageID string, reason string) error {
	processingKey := keyPrefixProcessing + q.name
	msgKey := keyPrefixMessage + q.name + ":" + messageID
	dlqKey := keyPrefixDLQ + q.name

	data, err := q.client.Get(q.ctx, msgKey).Bytes()
	if err == redis.Nil {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}

	dlqEntry := map[string]interface{}{
		"message":    string(data),
		"reason":     reason,
		"moved_at":   time.Now().Format(time.RFC3339),
		"queue_name": q.name,
	}
	dlqData, _ := json.Marshal(dlqEntry)

	pipe := q.client.TxPipeline()
	pipe.ZRem(q.ctx, processingKey, messageID)
	pipe.Del(q.ctx, msgKey)
	pipe.ZAdd(q.ctx, dlqKey, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: string(dlqData),
	})
	if _, err := pipe.Exec(q.ctx); err != nil {
		return fmt.Errorf("move to DLQ: %w", err)
	}

	q.logger.Warn("message dead lettered",
		logging.F("queue", q.name),
		logging.F("message_id", messageID),
		logging.F("reason", reason))
	return nil
}

// Depth returns the current queue depth.
func (q *RedisQueue) Depth() (int64, error) {
	return q.client.ZCard(q.ctx, keyPrefixQueue+q.name).Result()
}

// Close stops the queue. The underlying client is shared and stays open.
func (q *RedisQueue) Close() error {
	q.cancelFunc()
	return nil
}

// RecoverStaleMessages re-enqueues messages whose visibility timeout passed
// without an ack. Called periodically by the worker pool.
func (q *RedisQueue) RecoverStaleMessages() error {
	processingKey := keyPrefixProcessing + q.name
	queueKey := keyPrefixQueue + q.name

	now := float64(time.Now().UnixNano())
	stale, err := q.client.ZRangeByScore(q.ctx, processingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("find stale messages: %w", err)
	}

	for _, messageID := range stale {
		msgKey := keyPrefixMessage + q.name + ":" + messageID

		data, err := q.client.Get(q.ctx, msgKey).Bytes()
		if err == redis.Nil {
			q.client.ZRem(q.ctx, processingKey, messageID)
			continue
		}
		if err != nil {
			continue
		}

		var qm QueuedMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			continue
		}

		qm.RetryCount++
		if qm.RetryCount >= q.config.MaxRetries {
			q.MoveToDeadLetter(messageID, "visibility timeout exceeded")
			continue
		}

		updatedData, _ := json.Marshal(qm)
		pipe := q.client.TxPipeline()
		pipe.ZRem(q.ctx, processingKey, messageID)
		pipe.Set(q.ctx, msgKey, updatedData, q.config.RetentionPeriod)
		pipe.ZAdd(q.ctx, queueKey, redis.Z{
			Score:  priorityScore(qm.Priority, time.Now()),
			Member: messageID,
		})
		pipe.Exec(q.ctx)
	}

	return nil
}

// Verify interface compliance
var _ Queue = (*RedisQueue)(nil)
