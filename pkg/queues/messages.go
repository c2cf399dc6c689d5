// Package queues provides the Redis-backed work queues between document
// ingestion, the extraction workers, and the downstream review workflow.
package queues

import (
	"encoding/json"
	"time"

	"github.com/paperglass/paperglass/pkg/invoice"
)

// Priority levels for queue messages.
type Priority int

const (
	PriorityLow    Priority = 0 // backfill and reprocessing
	PriorityNormal Priority = 1 // batch submissions
	PriorityHigh   Priority = 2 // interactive submissions
)

// MessageType identifies the type of queue message.
type MessageType string

const (
	MessageTypeDocument MessageType = "document"
	MessageTypeDecision MessageType = "decision"
)

// Message is the base interface for all queue messages.
type Message interface {
	// GetDocumentID returns the document being processed.
	GetDocumentID() string
	// GetPriority returns the message priority.
	GetPriority() Priority
	// GetMessageType returns the message type.
	GetMessageType() MessageType
	// GetBatchID returns the batch ID if part of a batch.
	GetBatchID() string
}

// DocumentMessage asks a worker to run the extraction pipeline on a stored
// document. Path points at the PDF on shared storage; the engine never
// fetches documents itself.
type DocumentMessage struct {
	DocumentID  string    `json:"document_id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	Priority    Priority  `json:"priority"`
	SubmittedAt time.Time `json:"submitted_at"`
	BatchID     string    `json:"batch_id,omitempty"`
}

func (m *DocumentMessage) GetDocumentID() string       { return m.DocumentID }
func (m *DocumentMessage) GetPriority() Priority       { return m.Priority }
func (m *DocumentMessage) GetMessageType() MessageType { return MessageTypeDocument }
func (m *DocumentMessage) GetBatchID() string          { return m.BatchID }

// DecisionMessage carries a finished extraction to the review workflow.
type DecisionMessage struct {
	RunID       string                     `json:"run_id"`
	DocumentID  string                     `json:"document_id"`
	Filename    string                     `json:"filename"`
	Decision    invoice.ProcessingDecision `json:"decision"`
	Confidence  float64                    `json:"confidence"`
	IssueCount  int                        `json:"issue_count"`
	ProcessedAt time.Time                  `json:"processed_at"`
	Priority    Priority                   `json:"priority"`
	BatchID     string                     `json:"batch_id,omitempty"`
}

func (m *DecisionMessage) GetDocumentID() string       { return m.DocumentID }
func (m *DecisionMessage) GetPriority() Priority       { return m.Priority }
func (m *DecisionMessage) GetMessageType() MessageType { return MessageTypeDecision }
func (m *DecisionMessage) GetBatchID() string          { return m.BatchID }

// QueuedMessage wraps a message with queue metadata.
type QueuedMessage struct {
	ID           string          `json:"id"`
	Message      json.RawMessage `json:"message"`
	MessageType  MessageType     `json:"message_type"`
	Priority     Priority        `json:"priority"`
	RetryCount   int             `json:"retry_count"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAfter time.Time       `json:"visible_after,omitempty"`
}

// ParseMessage parses the raw message based on message type.
func (qm *QueuedMessage) ParseMessage() (Message, error) {
	switch qm.MessageType {
	case MessageTypeDocument:
		var msg DocumentMessage
		if err := json.Unmarshal(qm.Message, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	case MessageTypeDecision:
		var msg DecisionMessage
		if err := json.Unmarshal(qm.Message, &msg); err != nil {
			return nil, err
		}
		return &msg, nil
	default:
		return nil, ErrUnknownMessageType
	}
}

// Queue defines the interface for a message queue.
type Queue interface {
	// Name returns the queue name.
	Name() string

	// Enqueue adds a message to the queue.
	Enqueue(msg Message) error

	// EnqueueBatch adds multiple messages to the queue.
	EnqueueBatch(msgs []Message) error

	// Dequeue retrieves up to maxMessages, blocking for at most timeout.
	Dequeue(maxMessages int, timeout time.Duration) ([]*QueuedMessage, error)

	// Ack acknowledges successful processing of a message.
	Ack(messageID string) error

	// Nack indicates processing failure; the message is retried or dead
	// lettered.
	Nack(messageID string) error

	// MoveToDeadLetter moves a message to the dead letter queue.
	MoveToDeadLetter(messageID string, reason string) error

	// Depth returns the current queue depth.
	Depth() (int64, error)

	// Close closes the queue connection.
	Close() error
}

// QueueConfig configures queue behavior.
type QueueConfig struct {
	Name              string        `yaml:"name"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetentionPeriod   time.Duration `yaml:"retention_period"`
}

// DefaultQueueConfig returns sane queue settings for the given name. OCR can
// hold a message for minutes, so the visibility timeout is generous.
func DefaultQueueConfig(name string) QueueConfig {
	return QueueConfig{
		Name:              name,
		VisibilityTimeout: 5 * time.Minute,
		MaxRetries:        3,
		RetentionPeriod:   24 * time.Hour,
	}
}

// Verify interface compliance
var _ Message = (*DocumentMessage)(nil)
var _ Message = (*DecisionMessage)(nil)
