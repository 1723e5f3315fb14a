// Package events publishes a message to NATS for every forwarded request.
//
// Publishing is optional and disabled by default. Each Event carries a
// ULID, the request ID, the outcome kind, the caller status and the
// upstream latency; it never carries user identifiers or prompt text.
//
//	nc, err := events.Connect(cfg.Events.NatsURL)
//	publisher := events.NewPublisher(nc, events.PublisherConfig{
//	    Subject: cfg.Events.Subject,
//	})
//	defer publisher.Close()
package events
