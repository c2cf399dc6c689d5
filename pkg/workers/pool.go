// Package workers runs the document worker pool: each worker drains the
// document queue, runs the extraction pipeline, and publishes the routing
// decision.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	pgerrors "github.com/paperglass/paperglass/pkg/errors"
	"github.com/paperglass/paperglass/pkg/logging"
	"github.com/paperglass/paperglass/pkg/queues"
)

// WorkerStatus represents the worker's current status.
type WorkerStatus string

const (
	WorkerStatusStarting WorkerStatus = "starting"
	WorkerStatusHealthy  WorkerStatus = "healthy"
	WorkerStatusDraining WorkerStatus = "draining"
	WorkerStatusStopped  WorkerStatus = "stopped"
)

// MessageHandler processes a queue message.
type MessageHandler func(ctx context.Context, msg queues.Message) error

// Config configures the pool.
type Config struct {
	Count           int           `yaml:"count"`
	BatchSize       int           `yaml:"batch_size"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns worker settings sized for OCR-heavy documents.
func DefaultConfig() Config {
	return Config{
		Count:           4,
		BatchSize:       1,
		PollInterval:    time.Second,
		HandlerTimeout:  4 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Worker processes messages from one queue until stopped.
type Worker struct {
	ID           string
	Config       Config
	Status       WorkerStatus
	Queue        queues.Queue
	Handler      MessageHandler
	StartedAt    time.Time
	LastActivity time.Time

	ProcessedCount atomic.Int64
	FailedCount    atomic.Int64

	logger     logging.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
}

// NewWorker creates a new worker.
func NewWorker(cfg Config, queue queues.Queue, handler MessageHandler, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ID:         uuid.New().String(),
		Config:     cfg,
		Status:     WorkerStatusStarting,
		Queue:      queue,
		Handler:    handler,
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         &sync.WaitGroup{},
	}
}

// Start begins processing messages.
func (w *Worker) Start() {
	w.StartedAt = time.Now()
	w.Status = WorkerStatusHealthy
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		w.processLoop()
	}()
}

// Stop gracefully stops the worker, waiting up to ShutdownTimeout for the
// in-flight message.
func (w *Worker) Stop() {
	w.Status = WorkerStatusDraining
	w.cancelFunc()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.Config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timed out", logging.F("worker_id", w.ID))
	}
	w.Status = WorkerStatusStopped
}

func (w *Worker) processLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			messages, err := w.Queue.Dequeue(w.Config.BatchSize, w.Config.PollInterval)
			if err != nil {
				if err == queues.ErrQueueClosed || w.ctx.Err() != nil {
					return
				}
				w.logger.Warn("dequeue failed", logging.F("worker_id", w.ID), logging.Err(err))
				time.Sleep(w.Config.PollInterval)
				continue
			}

			for _, qm := range messages {
				if w.ctx.Err() != nil {
					return
				}
				w.processMessage(qm)
			}
		}
	}
}

func (w *Worker) processMessage(qm *queues.QueuedMessage) {
	w.LastActivity = time.Now()

	msg, err := qm.ParseMessage()
	if err != nil {
		w.Queue.MoveToDeadLetter(qm.ID, fmt.Sprintf("parse error: %v", err))
		w.FailedCount.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.Config.HandlerTimeout)
	defer cancel()

	if err := w.Handler(ctx, msg); err != nil {
		pe := pgerrors.Classify(err, "worker")
		if pgerrors.IsRetryable(pe.Code) {
			w.Queue.Nack(qm.ID)
		} else {
			w.Queue.MoveToDeadLetter(qm.ID, pe.Error())
		}
		w.FailedCount.Add(1)
		w.logger.Error("message processing failed",
			logging.F("worker_id", w.ID),
			logging.F("message_id", qm.ID),
			logging.F("code", string(pe.Code)),
			logging.Err(err))
		return
	}

	w.Queue.Ack(qm.ID)
	w.ProcessedCount.Add(1)
}

// Pool manages a fixed set of workers on one queue.
type Pool struct {
	Config  Config
	Workers []*Worker
	Queue   queues.Queue
	Handler MessageHandler

	logger logging.Logger
	mu     sync.RWMutex
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, queue queues.Queue, handler MessageHandler, logger logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pool{
		Config:  cfg,
		Queue:   queue,
		Handler: handler,
		Workers: make([]*Worker, 0, cfg.Count),
		logger:  logger,
	}
}

// Start starts all workers in the pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < p.Config.Count; i++ {
		worker := NewWorker(p.Config, p.Queue, p.Handler, p.logger)
		worker.Start()
		p.Workers = append(p.Workers, worker)
	}
	p.logger.Info("worker pool started",
		logging.F("queue", p.Queue.Name()),
		logging.F("workers", p.Config.Count))
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var wg sync.WaitGroup
	for _, worker := range p.Workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(worker)
	}
	wg.Wait()
	p.logger.Info("worker pool stopped", logging.F("queue", p.Queue.Name()))
}

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PoolStats{WorkerCount: len(p.Workers)}
	for _, w := range p.Workers {
		if w.Status == WorkerStatusHealthy {
			stats.ActiveCount++
		}
		stats.Processed += w.ProcessedCount.Load()
		stats.Failed += w.FailedCount.Load()
	}
	return stats
}

// PoolStats contains pool statistics.
type PoolStats struct {
	WorkerCount int
	ActiveCount int
	Processed   int64
	Failed      int64
}
