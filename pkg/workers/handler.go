package workers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/pipeline"
	"github.com/paperglass/paperglass/pkg/queues"
)

// Recorder persists finished extractions. Implemented by dedup.Store.
type Recorder interface {
	Record(ctx context.Context, x *invoice.InvoiceExtraction) error
}

// DocumentProcessor turns DocumentMessages into routed extractions. It reads
// the PDF from shared storage, runs the pipeline, records the result, and
// publishes the decision for the review workflow.
type DocumentProcessor struct {
	engine    *pipeline.Engine
	recorder  Recorder     // optional
	decisions queues.Queue // optional
	logger    logging.Logger
}

// NewDocumentProcessor wires a processor. recorder and decisions may be nil;
// the corresponding step is skipped.
func NewDocumentProcessor(engine *pipeline.Engine, recorder Recorder, decisions queues.Queue, logger logging.Logger) *DocumentProcessor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentProcessor{
		engine:    engine,
		recorder:  recorder,
		decisions: decisions,
		logger:    logger,
	}
}

// Handle implements MessageHandler.
func (p *DocumentProcessor) Handle(ctx context.Context, msg queues.Message) error {
	doc, ok := msg.(*queues.DocumentMessage)
	if !ok {
		return fmt.Errorf("unexpected message type %s", msg.GetMessageType())
	}

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return fmt.Errorf("read document %s: %w", doc.Path, err)
	}

	x, err := p.engine.Process(ctx, invoice.RawDocument{
		Bytes:       data,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
	})
	if err != nil {
		return fmt.Errorf("process document %s: %w", doc.DocumentID, err)
	}

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, x); err != nil {
			// The extraction itself succeeded; do not reprocess for a
			// lost dedup row.
			p.logger.Warn("failed to record extraction",
				logging.F("run_id", x.RunID),
				logging.Err(err))
		}
	}

	if p.decisions != nil {
		dm := &queues.DecisionMessage{
			RunID:       x.RunID,
			DocumentID:  doc.DocumentID,
			Filename:    x.Filename,
			Decision:    x.Decision,
			Confidence:  x.Confidence,
			IssueCount:  len(x.Issues),
			ProcessedAt: x.ProcessedAt,
			Priority:    doc.Priority,
			BatchID:     doc.BatchID,
		}
		if err := p.decisions.Enqueue(dm); err != nil {
			return fmt.Errorf("publish decision for %s: %w", doc.DocumentID, err)
		}
	}

	return nil
}

// RunStaleRecovery periodically re-enqueues messages whose workers died.
// Blocks until ctx is cancelled.
func RunStaleRecovery(ctx context.Context, q *queues.RedisQueue, interval time.Duration, logger logging.Logger) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.RecoverStaleMessages(); err != nil {
				logger.Warn("stale message recovery failed",
					logging.F("queue", q.Name()),
					logging.Err(err))
			}
		}
	}
}
