package store

import (
	"sync"
	"time"

	"github.com/krisalay/dns-cache/expiration"
	"github.com/krisalay/dns-cache/types"
)

/*
This file defines how resolved addresses are actually stored.

The store is a plain map behind ONE mutex:
- Get can delete (an expired entry is evicted when it is found), so reads are writes
  and a shared read lock would not be enough
- every operation holds the lock for its full duration
- nothing done under the lock touches the network

A sharded map is the upgrade path if the lock ever becomes contended.
*/

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Tests use it to move across the TTL boundary without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithStrategy replaces the FixedTTL expiration rule.
func WithStrategy(st expiration.Strategy) Option {
	return func(s *Store) {
		s.expiry = st
	}
}

// Store maps a domain name (case-sensitive, exactly as received) to its cached addresses.
type Store struct {
	mu      sync.Mutex
	entries map[string]types.CacheEntry

	ttl    time.Duration
	expiry expiration.Strategy
	now    func() time.Time
}

// New creates an empty store. A ttl <= 0 falls back to expiration.DefaultTTL.
// The ttl never changes after construction.
func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = expiration.DefaultTTL
	}
	s := &Store{
		entries: make(map[string]types.CacheEntry),
		ttl:     ttl,
		expiry:  expiration.FixedTTL{TTL: ttl},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime configured at construction.
func (s *Store) TTL() time.Duration { return s.ttl }

/*
Get looks up domain.

  - absent                → (nil, false)
  - present and fresh     → (copy of addresses, true)
  - present but too old   → entry deleted, (nil, false)

The returned slice is a copy; callers may modify it freely.
*/
func (s *Store) Get(domain string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[domain]
	if !ok {
		return nil, false
	}
	if s.expiry.IsExpired(ent, s.now()) {
		delete(s.entries, domain)
		return nil, false
	}
	return cloneAddrs(ent.Addresses), true
}

// Put inserts or overwrites the entry for domain, stamped with the current time.
// The old value, fresh or not, is discarded; lists are never merged.
// Addresses are not validated here.
func (s *Store) Put(domain string, addrs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[domain] = types.CacheEntry{
		Addresses: cloneAddrs(addrs),
		CreatedAt: s.now(),
	}
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]types.CacheEntry)
}

// Size returns how many entries are stored.
//
// Note: Size counts entries that have expired but have not been swept or looked up yet,
// so it may overcount live entries. Treat it as a statistic.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Cleanup removes every expired entry and returns how many were removed.
// A second call with no writes in between removes nothing.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for domain, ent := range s.entries {
		if s.expiry.IsExpired(ent, now) {
			delete(s.entries, domain)
			removed++
		}
	}
	return removed
}

func cloneAddrs(a []string) []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a))
	copy(out, a)
	return out
}
