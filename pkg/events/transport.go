package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Transport is the subset of *nats.Conn the publisher uses.
type Transport interface {
	Publish(subject string, data []byte) error
	Flush() error
	IsConnected() bool
	Close()
}

// Connect dials the NATS server at url. The connection reconnects forever
// in the background; publishes made while disconnected are buffered by
// the client.
func Connect(url string) (*nats.Conn, error) {
	logger := slog.Default().With("component", "events.nats")

	nc, err := nats.Connect(url,
		nats.Name("relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", "url", c.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", nc.ConnectedUrlRedacted())
	return nc, nil
}
