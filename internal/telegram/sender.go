package telegram

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/trashbot/internal/logger"
	"github.com/m3rciful/trashbot/internal/metrics"
)

// SenderOptions tunes the outbound dispatcher.
type SenderOptions struct {
	QueueSize int
	Workers   int
}

type job struct {
	kind string
	run  func() error
}

// Dispatcher executes outbound Telegram calls asynchronously on a small
// worker pool. Sends are best effort: a failed call is logged and
// dropped, never retried. When the queue is saturated the send runs
// synchronously on the caller instead of being lost.
type Dispatcher struct {
	jobs    chan job
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewDispatcher starts a dispatcher with sane defaults if options are zeroed.
func NewDispatcher(opts SenderOptions, m *metrics.Metrics) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	d := &Dispatcher{
		jobs:    make(chan job, opts.QueueSize),
		stop:    make(chan struct{}),
		log:     logger.TG,
		metrics: m,
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules one outbound call. After Close, or when the queue is
// full, the call executes synchronously instead.
func (d *Dispatcher) Enqueue(kind string, run func() error) {
	j := job{kind: kind, run: run}

	select {
	case <-d.stop:
		d.handle(j)
		return
	default:
	}

	select {
	case d.jobs <- j:
	default:
		d.handle(j)
	}
}

// Close stops the workers after draining queued jobs.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stop)
		close(d.jobs)
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	if err := j.run(); err != nil {
		d.log.Error("send failed",
			slog.String("type", j.kind),
			slog.Any("error", err))
		if d.metrics != nil {
			d.metrics.OutgoingSends.WithLabelValues(j.kind, "error").Inc()
			d.metrics.Errors.WithLabelValues("sender").Inc()
		}
		return
	}
	if d.metrics != nil {
		d.metrics.OutgoingSends.WithLabelValues(j.kind, "ok").Inc()
	}
}
