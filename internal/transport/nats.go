// v0
// internal/transport/nats.go
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"nrgchamp/cracfuzzy/internal/logging"
)

type natsConn interface {
	Publish(subj string, data []byte) error
	IsConnected() bool
	Drain() error
}

// ConnectNATS dials url and keeps reconnecting for the process lifetime.
func ConnectNATS(url string, log *slog.Logger) (*nats.Conn, error) {
	if log == nil {
		log = logging.Discard()
	}
	conn, err := nats.Connect(url,
		nats.Name("cracfuzzy"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats_disconnected", "url", url, "err", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats_reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	log.Info("nats_connected", "url", url)
	return conn, nil
}

// NATSSink publishes events on <subject>.stream, <subject>.alert and
// <subject>.result.
type NATSSink struct {
	conn    natsConn
	subject string
}

func NewNATSSink(conn natsConn, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Connected() bool { return s.conn != nil && s.conn.IsConnected() }

func (s *NATSSink) Publish(ctx context.Context, kind Kind, _ string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.conn.Publish(s.subject+"."+string(kind), payload)
}

func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
