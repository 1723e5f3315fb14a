package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/relay/pkg/proxy/types"
)

// SinkName labels audit drops and failures in metrics.
const SinkName = "audit"

// SinkMetrics counts records the recorder could not persist.
// *metrics.Collector implements it.
type SinkMetrics interface {
	RecordSinkDrop(sink string)
	RecordSinkError(sink string)
}

// RecorderConfig contains configuration for the Recorder.
type RecorderConfig struct {
	// BufferSize is the capacity of the async write queue.
	// Default: 1000
	BufferSize int

	// WriteTimeout bounds one storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// Metrics is optional.
	Metrics SinkMetrics
}

// Recorder writes exchanges to storage on a background goroutine so the
// request path never waits on the database.
type Recorder struct {
	storage Storage
	config  RecorderConfig
	records chan *Record
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
}

// NewRecorder creates a Recorder and starts its writer.
func NewRecorder(storage Storage, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		records: make(chan *Record, cfg.BufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Observe enqueues ex. It never blocks: when the queue is full or the
// recorder is closed the record is dropped and counted.
func (r *Recorder) Observe(ctx context.Context, ex types.Exchange) {
	record := NewRecord(ex)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(ctx, record, "recorder closed")
		return
	}

	select {
	case r.records <- record:
	default:
		r.drop(ctx, record, "queue full")
	}
}

func (r *Recorder) drop(ctx context.Context, record *Record, reason string) {
	r.logger.WarnContext(ctx, "dropping audit record",
		"record_id", record.ID,
		"reason", reason,
		"queue_capacity", r.config.BufferSize,
	)
	if r.config.Metrics != nil {
		r.config.Metrics.RecordSinkDrop(SinkName)
	}
}

// Close stops accepting records, writes everything already queued and
// returns once the queue is empty. It does not close the storage.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.records:
			r.write(record)

		case <-r.done:
			if n := len(r.records); n > 0 {
				r.logger.Info("draining audit queue before shutdown", "pending_count", n)
			}
			for {
				select {
				case record := <-r.records:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		if r.config.Metrics != nil {
			r.config.Metrics.RecordSinkError(SinkName)
		}
		return
	}

	if elapsed := time.Since(start); elapsed > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
}
