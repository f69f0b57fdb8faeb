package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// This file implements asynchronous resolve submission.

// ErrClosed is returned by Submit once the pool has been closed.
var ErrClosed = errors.New("dispatch: pool is closed")

// Service is what the workers call; dnscache.CachingResolver satisfies it.
type Service interface {
	ResolveWithCache(ctx context.Context, domain string) ([]string, bool)
}

// Result is delivered on the channel returned by Submit.
type Result struct {
	Domain    string
	Addresses []string
	FromCache bool
}

// job represents one pending lookup.
type job struct {
	ctx    context.Context
	domain string
	out    chan Result
}

/*
Pool runs lookups on a fixed set of worker goroutines.

Instead of spawning a detached goroutine per request and pushing the answer to some
UI queue, the caller submits a domain and gets back a channel that will carry
exactly one Result.
*/
type Pool struct {
	svc Service
	log logrus.FieldLogger

	// ch is a buffered channel that holds pending lookups.
	ch chan job

	// mu guards closed; Submit holds it shared while sending so Close cannot
	// close ch underneath a sender.
	mu     sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

// NewPool starts workers goroutines (at least one) reading from a queue of the given size.
// A nil log discards output.
func NewPool(svc Service, workers, queue int, log logrus.FieldLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	p := &Pool{
		svc: svc,
		log: log,
		ch:  make(chan job, queue),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

/*
Submit queues a lookup for domain and returns the channel its Result will arrive on.

Unlike a write-back queue, a lookup is never dropped under pressure: Submit waits for
room in the queue until ctx is done. The returned channel is buffered, so a caller
that stops listening does not stall a worker.
*/
func (p *Pool) Submit(ctx context.Context, domain string) (<-chan Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	out := make(chan Result, 1)
	select {
	case p.ch <- job{ctx: ctx, domain: domain, out: out}:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolve submits domain and waits for its result or for ctx to end.
func (p *Pool) Resolve(ctx context.Context, domain string) (Result, error) {
	out, err := p.Submit(ctx, domain)
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-out:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// worker processes queued lookups until the queue is closed and drained.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.log.WithField("worker", id)
	for j := range p.ch {
		addrs, fromCache := p.svc.ResolveWithCache(j.ctx, j.domain)
		log.WithFields(logrus.Fields{
			"domain":     j.domain,
			"from_cache": fromCache,
		}).Debug("lookup done")
		j.out <- Result{Domain: j.domain, Addresses: addrs, FromCache: fromCache}
	}
}

/*
Close shuts the pool down gracefully:
1. Stop accepting new submissions
2. Let the workers finish everything already queued
3. Wait for them to exit

Close is safe to call more than once.
*/
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	p.wg.Wait()
}
