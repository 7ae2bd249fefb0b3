// v0
// internal/transport/dispatcher.go
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"nrgchamp/cracfuzzy/internal/logging"
	"nrgchamp/cracfuzzy/internal/simulation"
)

// resultReserve is queue room only completion events may use, so the run
// summary still goes out when the stream has filled the buffer.
const resultReserve = 4

type DispatcherOptions struct {
	Buffer         int           // queue capacity for stream and alert events; default 256
	StreamEvery    int           // publish every Nth step; default 1
	PublishTimeout time.Duration // per event; default 5s
	Logger         *slog.Logger
	Stats          Stats
}

type envelope struct {
	kind    Kind
	key     string
	payload []byte
}

// Dispatcher adapts a Publisher to simulation.Observer. Events go through a
// bounded queue drained by one goroutine; when the queue is full the event
// is dropped and counted, so the loop never waits on the network. Results
// may also use a small reserve on top of Buffer.
type Dispatcher struct {
	pub     Publisher
	every   int
	limit   int
	timeout time.Duration
	log     *slog.Logger
	stats   Stats

	mu     sync.Mutex
	closed bool
	queue  chan envelope
	done   chan struct{}

	dropped   atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher starts the drain goroutine. Close stops it.
func NewDispatcher(pub Publisher, opts DispatcherOptions) *Dispatcher {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.StreamEvery <= 0 {
		opts.StreamEvery = 1
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Stats == nil {
		opts.Stats = nopStats{}
	}
	d := &Dispatcher{
		pub:     pub,
		every:   opts.StreamEvery,
		limit:   opts.Buffer,
		timeout: opts.PublishTimeout,
		log:     opts.Logger.With("sink", pub.Name()),
		stats:   opts.Stats,
		queue:   make(chan envelope, opts.Buffer+resultReserve),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) OnStep(e simulation.StepEvent) {
	if e.Record.Step%d.every != 0 {
		return
	}
	d.Send(KindStream, e.RunID, NewStepMessage(e))
}

func (d *Dispatcher) OnAlert(e simulation.AlertEvent) {
	d.Send(KindAlert, e.RunID, NewAlertMessage(e))
}

func (d *Dispatcher) OnComplete(e simulation.CompletionEvent) {
	d.Send(KindResult, e.RunID, NewResultMessage(e))
}

// Send encodes v and queues it without blocking. It reports whether the
// event was queued. Only KindResult may go past Buffer.
func (d *Dispatcher) Send(kind Kind, key string, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		d.log.Error("event_marshal_failed", "kind", kind, "err", err)
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || (kind != KindResult && len(d.queue) >= d.limit) {
		d.drop(kind)
		return false
	}
	select {
	case d.queue <- envelope{kind: kind, key: key, payload: b}:
		return true
	default:
		d.drop(kind)
		return false
	}
}

func (d *Dispatcher) drop(kind Kind) {
	n := d.dropped.Add(1)
	d.stats.EventDropped(d.pub.Name())
	// logs the first drop of every hundred
	if n%100 == 1 {
		d.log.Warn("event_dropped", "kind", kind, "dropped", n)
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for env := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.pub.Publish(ctx, env.kind, env.key, env.payload)
		cancel()
		if err != nil {
			d.failed.Add(1)
			d.stats.PublishFailed(d.pub.Name())
			d.log.Warn("event_publish_failed", "kind", env.kind, "key", env.key, "err", err)
			continue
		}
		d.published.Add(1)
	}
}

// Close stops accepting events, drains what is queued and closes the
// publisher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
	d.log.Info("dispatcher_closed", "published", d.published.Load(), "dropped", d.dropped.Load(), "failed", d.failed.Load())
	return d.pub.Close()
}

func (d *Dispatcher) Name() string { return d.pub.Name() }

func (d *Dispatcher) Dropped() uint64   { return d.dropped.Load() }
func (d *Dispatcher) Published() uint64 { return d.published.Load() }
func (d *Dispatcher) Failed() uint64    { return d.failed.Load() }
