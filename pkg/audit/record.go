package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mercator-hq/relay/pkg/proxy/types"
)

// Record is one audited exchange. The prompt itself is never stored, only
// its SHA-256 and length.
type Record struct {
	ID                string    `json:"id"` // UUID v4
	RequestID         string    `json:"request_id"`
	UserID            string    `json:"user_id"`
	SessionID         string    `json:"session_id"`
	PromptSHA256      string    `json:"prompt_sha256"`
	PromptChars       int       `json:"prompt_chars"`
	Outcome           string    `json:"outcome"`
	StatusCode        int       `json:"status_code"`
	UpstreamLatencyMS int64     `json:"upstream_latency_ms"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewRecord builds a Record with a fresh ID from ex.
func NewRecord(ex types.Exchange) *Record {
	created := ex.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	return &Record{
		ID:                uuid.NewString(),
		RequestID:         ex.RequestID,
		UserID:            ex.UserID,
		SessionID:         ex.SessionID,
		PromptSHA256:      ex.PromptSHA256,
		PromptChars:       ex.PromptChars,
		Outcome:           ex.Outcome,
		StatusCode:        ex.StatusCode,
		UpstreamLatencyMS: ex.UpstreamLatency.Milliseconds(),
		Error:             ex.Error,
		CreatedAt:         created.UTC().Truncate(time.Millisecond),
	}
}

// DefaultQueryLimit caps Query results when Filter.Limit is zero.
const DefaultQueryLimit = 100

// Filter selects records. Zero-valued fields match everything.
type Filter struct {
	UserID    string
	SessionID string
	Outcome   string

	// Since and Until bound CreatedAt, inclusive.
	Since time.Time
	Until time.Time

	// Limit caps the number of records returned by Query. Ignored by Count.
	Limit int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}

func (f Filter) matches(r *Record) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store appends a record.
	Store(ctx context.Context, record *Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, filter Filter) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, filter Filter) (int64, error)

	// DeleteBefore removes records created before cutoff and returns how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks that the backend is usable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
