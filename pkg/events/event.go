package events

import (
	"time"

	"github.com/oklog/ulid/v2"

	"mercator-hq/relay/pkg/proxy/types"
)

// Event is the message published for every forwarded request. IDs are
// ULIDs, so consumers can order events by ID.
type Event struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"request_id"`
	Outcome           string    `json:"outcome"`
	StatusCode        int       `json:"status_code"`
	UpstreamLatencyMS int64     `json:"upstream_latency_ms"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewEvent builds an Event from ex.
func NewEvent(ex types.Exchange) Event {
	ts := ex.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Event{
		ID:                ulid.Make().String(),
		RequestID:         ex.RequestID,
		Outcome:           ex.Outcome,
		StatusCode:        ex.StatusCode,
		UpstreamLatencyMS: ex.UpstreamLatency.Milliseconds(),
		Timestamp:         ts,
	}
}
