// Package journal publishes conversation messages to a sink in batches,
// off the request path.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// maxAttempts bounds how often one batch is retried before it is dropped.
	maxAttempts = 5

	// drainTimeout bounds the final flush after shutdown begins.
	drainTimeout = 5 * time.Second
)

// BatchLoader writes multiple conversation messages to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, messages []domain.Message) error
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the clock driving the flush ticker.
func WithClock(c clockwork.Clock) Option {
	return func(j *Journal) { j.clock = c }
}

// Journal buffers recorded messages and writes them in batches of up to
// batchSize, flushing at least every flushInterval.
type Journal struct {
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	clock         clockwork.Clock
	batchSize     int
	flushInterval time.Duration

	queue   chan domain.Message
	running atomic.Bool
	healthy atomic.Bool
}

// New creates a Journal. The buffer holds ten batches; Record drops messages
// when it is full.
func New(l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration, opts ...Option) *Journal {
	j := &Journal{
		loader:        l,
		logger:        logger,
		metrics:       metrics,
		clock:         clockwork.NewRealClock(),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		queue:         make(chan domain.Message, batchSize*10),
	}
	j.healthy.Store(true)
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record enqueues messages without blocking.
func (j *Journal) Record(messages ...domain.Message) {
	for _, m := range messages {
		select {
		case j.queue <- m:
			j.metrics.JournalRecorded.Inc()
		default:
			j.metrics.JournalDropped.Inc()
			j.logger.Warn("journal buffer full, dropping message", "message_id", m.ID)
		}
	}
}

// CheckReadiness returns nil while the loop runs and the last write succeeded.
func (j *Journal) CheckReadiness(_ context.Context) error {
	if !j.running.Load() {
		return errors.New("journal is not running")
	}
	if !j.healthy.Load() {
		return errors.New("journal sink is failing")
	}
	return nil
}

// Run batches and writes recorded messages until ctx is cancelled, then
// flushes what is still buffered.
func (j *Journal) Run(ctx context.Context) error {
	j.logger.Info("journal started", "batch_size", j.batchSize, "flush_interval", j.flushInterval)
	j.running.Store(true)
	j.metrics.JournalRunning.Set(1)
	defer func() {
		j.running.Store(false)
		j.metrics.JournalRunning.Set(0)
	}()

	ticker := j.clock.NewTicker(j.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.Message, 0, j.batchSize)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("journal stopping", "reason", ctx.Err())
			j.drain(ctx, batch)
			return nil
		case m := <-j.queue:
			batch = append(batch, m)
			if len(batch) >= j.batchSize {
				j.flush(ctx, batch)
				batch = make([]domain.Message, 0, j.batchSize)
			}
		case <-ticker.Chan():
			if len(batch) > 0 {
				j.flush(ctx, batch)
				batch = make([]domain.Message, 0, j.batchSize)
			}
		}
	}
}

// flush writes batch, retrying with exponential backoff. The batch is
// dropped after maxAttempts failures or when ctx ends.
func (j *Journal) flush(ctx context.Context, batch []domain.Message) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := j.loader.LoadBatch(ctx, batch)
		if err == nil {
			j.healthy.Store(true)
			j.metrics.JournalPublished.Add(float64(len(batch)))
			j.metrics.JournalBatchSize.Observe(float64(len(batch)))
			return
		}

		j.healthy.Store(false)
		j.metrics.JournalErrors.Inc()
		j.logger.Error("journal load batch failed", "error", err, "batch_size", len(batch), "attempt", attempt)

		if attempt >= maxAttempts || ctx.Err() != nil {
			j.metrics.JournalDropped.Add(float64(len(batch)))
			return
		}
		if !retry.SleepWithContext(ctx, backoff) {
			j.metrics.JournalDropped.Add(float64(len(batch)))
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// drain writes the pending batch and everything still queued, once, under
// a fresh deadline.
func (j *Journal) drain(ctx context.Context, batch []domain.Message) {
	for len(j.queue) > 0 {
		batch = append(batch, <-j.queue)
	}
	if len(batch) == 0 {
		return
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	for start := 0; start < len(batch); start += j.batchSize {
		end := min(start+j.batchSize, len(batch))
		chunk := batch[start:end]
		if err := j.loader.LoadBatch(drainCtx, chunk); err != nil {
			j.metrics.JournalErrors.Inc()
			j.metrics.JournalDropped.Add(float64(len(chunk)))
			j.logger.Error("journal final flush failed", "error", err, "batch_size", len(chunk))
			continue
		}
		j.metrics.JournalPublished.Add(float64(len(chunk)))
	}
}
