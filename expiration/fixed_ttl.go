package expiration

import (
	"time"

	"github.com/krisalay/dns-cache/types"
)

// DefaultTTL is the lifetime used when none is configured.
const DefaultTTL = 300 * time.Second

/*
FixedTTL expires an entry a fixed duration after it was written. Reads do not extend
the lifetime (unlike a sliding "expire after access" TTL): a domain resolved at t0 is
re-resolved after t0+TTL no matter how often it was served in between.
*/
type FixedTTL struct {
	TTL time.Duration
}

// IsExpired is true once the entry's age reaches TTL. An entry exactly TTL old is stale.
func (f FixedTTL) IsExpired(ent types.CacheEntry, now time.Time) bool {
	return ent.Age(now) >= f.TTL
}
