// This file defines how cache entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/dns-cache/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of hard-coding
the age check into the store, the store asks a strategy, so tests and alternative
policies can swap the rule without touching the locking code.
*/
type Strategy interface {

	// IsExpired reports whether the entry must no longer be served at instant now.
	IsExpired(ent types.CacheEntry, now time.Time) bool
}
