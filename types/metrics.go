package types

import "sync/atomic"

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the resolver cache wants to measure.
Each method represents an event in the lookup lifecycle. The facade and the janitor call
these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a fresh entry is served from the store.
	Hit()

	// Miss is called when the store has nothing usable and upstream must be asked.
	Miss()

	// Fill is called when a non-empty upstream answer is written to the store.
	Fill()

	// Empty is called when upstream answered with zero addresses (not cached).
	Empty()

	// ResolveError is called when upstream failed (not cached).
	ResolveError()

	// Sweep is called after every janitor pass with the number of entries it removed.
	Sweep(removed int)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Users that do not care about metrics still get a working cache without
nil checks scattered through the lookup path.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()          {}
func (NoopMetrics) Miss()         {}
func (NoopMetrics) Fill()         {}
func (NoopMetrics) Empty()        {}
func (NoopMetrics) ResolveError() {}
func (NoopMetrics) Sweep(int)     {}

// Counters is a lock-free Metrics implementation backed by atomic counters.
type Counters struct {
	hits, misses, fills, empties, errors atomic.Int64
	sweeps, swept                        atomic.Int64
}

func (c *Counters) Hit()          { c.hits.Add(1) }
func (c *Counters) Miss()         { c.misses.Add(1) }
func (c *Counters) Fill()         { c.fills.Add(1) }
func (c *Counters) Empty()        { c.empties.Add(1) }
func (c *Counters) ResolveError() { c.errors.Add(1) }

func (c *Counters) Sweep(removed int) {
	c.sweeps.Add(1)
	c.swept.Add(int64(removed))
}

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Fills         int64 `json:"fills"`
	Empty         int64 `json:"empty"`
	ResolveErrors int64 `json:"resolve_errors"`
	Sweeps        int64 `json:"sweeps"`
	Swept         int64 `json:"swept"`
}

// Snapshot reads every counter. Counters are read one by one, so a snapshot taken
// under load is not an atomic view across fields.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Fills:         c.fills.Load(),
		Empty:         c.empties.Load(),
		ResolveErrors: c.errors.Load(),
		Sweeps:        c.sweeps.Load(),
		Swept:         c.swept.Load(),
	}
}
