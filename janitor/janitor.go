// Package janitor periodically evicts expired entries from the store,
// independently of lookup traffic, and publishes the resulting cache size.
package janitor

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/krisalay/dns-cache/types"
)

// DefaultPeriod is the sweep interval used when none is configured.
const DefaultPeriod = 60 * time.Second

// Sweeper is the part of store.Store the janitor needs.
type Sweeper interface {
	Cleanup() int
	Size() int
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(j *Janitor) {
		j.log = log
	}
}

// WithMetrics records every sweep.
func WithMetrics(m types.Metrics) Option {
	return func(j *Janitor) {
		if m != nil {
			j.metrics = m
		}
	}
}

// WithObserver adds an observer of the post-sweep size. May be given more than once.
func WithObserver(o types.SizeObserver) Option {
	return func(j *Janitor) {
		j.observers = append(j.observers, o)
	}
}

// Janitor is a peer client of the store; it gets no special access.
type Janitor struct {
	store     Sweeper
	period    time.Duration
	observers []types.SizeObserver

	log     logrus.FieldLogger
	metrics types.Metrics
}

// New creates a janitor for st. A period <= 0 falls back to DefaultPeriod.
func New(st Sweeper, period time.Duration, opts ...Option) *Janitor {
	if period <= 0 {
		period = DefaultPeriod
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	j := &Janitor{
		store:   st,
		period:  period,
		log:     discard,
		metrics: types.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Period returns the sweep interval.
func (j *Janitor) Period() time.Duration { return j.period }

// Sweep runs one pass: drop expired entries, then report the size that is left.
// Removing nothing is a normal outcome.
func (j *Janitor) Sweep() {
	removed := j.store.Cleanup()
	size := j.store.Size()

	j.metrics.Sweep(removed)
	j.log.WithFields(logrus.Fields{
		"removed": removed,
		"size":    size,
	}).Debug("sweep complete")

	for _, o := range j.observers {
		o.ReportSize(size)
	}
}

// Run sweeps every period until ctx is canceled, then returns nil.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.period)
	defer ticker.Stop()

	j.log.WithField("period", j.period).Info("janitor started")
	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return nil
		case <-ticker.C:
			j.Sweep()
		}
	}
}
