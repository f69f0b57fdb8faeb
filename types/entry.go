package types

import "time"

// CacheEntry is one resolved domain held by the store.
// Addresses keep the order the upstream resolver returned them in.
// Entries are replaced as a whole, never patched.
type CacheEntry struct {
	Addresses []string
	CreatedAt time.Time
}

// Age returns how long ago the entry was written.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
