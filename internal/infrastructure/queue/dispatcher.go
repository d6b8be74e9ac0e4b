package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/pkg/events"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Dispatcher routes booking notices to a fixed set of workers using consistent
// hashing on the event id, so notices for one event are published in order.
type Dispatcher struct {
	workers   []chan domain.BookingNotice
	publisher events.Publisher
	log       zerolog.Logger
	wg        sync.WaitGroup
	onDrop    func()
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDropHook registers fn to be called whenever a notice is dropped
// because its worker queue is full.
func WithDropHook(fn func()) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher events.Publisher, log zerolog.Logger, opts ...Option) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.BookingNotice, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.BookingNotice, channelBuffer)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify hands a notice to the worker responsible for its event. It never
// blocks; a notice is dropped with a warning when the worker queue is full.
func (d *Dispatcher) Notify(notice domain.BookingNotice) {
	select {
	case d.workers[d.shardIndex(notice.EventID)] <- notice:
	default:
		if d.onDrop != nil {
			d.onDrop()
		}
		d.log.Warn().
			Str("booking_id", notice.BookingID).
			Str("event_id", notice.EventID).
			Msg("notice queue full, dropping")
	}
}

// shardIndex maps an event id deterministically to a worker index.
func (d *Dispatcher) shardIndex(eventID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(eventID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.BookingNotice) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-ch:
			if !ok {
				return
			}
			d.publish(ctx, id, notice)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, worker int, notice domain.BookingNotice) {
	subject := events.BookingConfirmed
	if notice.Status == domain.BookingCancelled {
		subject = events.BookingCancelled
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, subject, notice); err != nil {
		d.log.Error().Err(err).
			Str("booking_id", notice.BookingID).
			Str("subject", subject).
			Int("worker_id", worker).
			Msg("notice publish failed")
	}
}
