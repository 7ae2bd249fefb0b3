// v0
// internal/transport/publisher.go
package transport

import "context"

// Publisher delivers one encoded event. Implementations may block up to the
// context deadline; the Dispatcher keeps them off the simulation loop.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, kind Kind, key string, payload []byte) error
	Close() error
}

// Stats receives dispatcher counters. *observability.Metrics satisfies it.
type Stats interface {
	EventDropped(sink string)
	PublishFailed(sink string)
}

type nopStats struct{}

func (nopStats) EventDropped(string)  {}
func (nopStats) PublishFailed(string) {}
