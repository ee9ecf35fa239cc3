package mirror

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/metrics"
)

// Mirror is a secondary copy of the ledger kept eventually consistent.
type Mirror interface {
	Name() string
	Apply(ctx context.Context, change appointment.Change) error
}

type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher fans committed changes out to mirrors on background workers.
// Changes for the same appointment land on the same worker and stay ordered.
type Dispatcher struct {
	mirrors []Mirror
	shards  []chan appointment.Change
	timeout time.Duration
	log     zerolog.Logger
	metrics *metrics.BookingMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg Config, log zerolog.Logger, m *metrics.BookingMetrics, mirrors ...Mirror) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		mirrors: mirrors,
		shards:  make([]chan appointment.Change, cfg.Workers),
		timeout: cfg.Timeout,
		log:     log,
		metrics: m,
	}
	for i := range d.shards {
		d.shards[i] = make(chan appointment.Change, cfg.QueueSize)
		d.wg.Add(1)
		go d.worker(d.shards[i])
	}
	return d
}

// Publish enqueues change without blocking. When the queue is full the change
// is dropped and counted.
func (d *Dispatcher) Publish(change appointment.Change) {
	if len(d.mirrors) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(change, "closed")
		return
	}

	select {
	case d.shards[d.shardOf(change)] <- change:
	default:
		d.drop(change, "queue_full")
	}
}

// Shutdown stops accepting changes and waits for queued ones to be applied,
// or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn().Msg("mirror dispatcher shutdown timed out; queued changes may be lost")
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(changes <-chan appointment.Change) {
	defer d.wg.Done()
	for change := range changes {
		for _, m := range d.mirrors {
			d.apply(m, change)
		}
	}
}

func (d *Dispatcher) apply(m Mirror, change appointment.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := m.Apply(ctx, change)
	d.metrics.ObserveMirror(m.Name(), err)
	if err != nil {
		d.log.Error().Err(err).
			Str("mirror", m.Name()).
			Str("kind", string(change.Kind)).
			Str("id", change.Record.ID.String()).
			Msg("mirror apply failed")
		return
	}
	d.log.Debug().
		Str("mirror", m.Name()).
		Str("kind", string(change.Kind)).
		Str("id", change.Record.ID.String()).
		Msg("mirror applied")
}

func (d *Dispatcher) drop(change appointment.Change, reason string) {
	d.metrics.ObserveMirrorDropped(reason)
	d.log.Warn().
		Str("kind", string(change.Kind)).
		Str("id", change.Record.ID.String()).
		Str("reason", reason).
		Msg("mirror change dropped")
}

func (d *Dispatcher) shardOf(change appointment.Change) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(change.Record.MirrorKey()))
	return int(h.Sum32() % uint32(len(d.shards)))
}
