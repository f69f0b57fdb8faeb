package api

import "context"

/*
Service defines what the HTTP layer needs from the resolver cache.
It hides the store, the upstream resolver and the janitor behind three calls.
*/
type Service interface {

	/*
		ResolveWithCache returns the addresses for domain.

		BEHAVIOR:
		-------------------
		1. Fresh cached entry → addresses, fromCache=true
		2. Otherwise the domain is resolved upstream:
		   - addresses found → cached and returned, fromCache=false
		   - nothing found   → empty list, not cached
		   - failure         → single "Error: ..." line, not cached
	*/
	ResolveWithCache(ctx context.Context, domain string) ([]string, bool)

	// ClearCache drops every cached entry (manual invalidation).
	ClearCache()

	// CacheSize returns the number of stored entries, including expired ones not yet swept.
	CacheSize() int
}
