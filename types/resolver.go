package types

import "context"

// Resolver is the contract between the cache and the real name resolution mechanism.
type Resolver interface {

	/*
		Resolve is called when the cache misses. The domain was not found in memory
		(or its entry was too old), so the cache asks the Resolver to look it up.
		1. Cache checks memory → domain not found
		2. Cache calls Resolve(domain)
		3. Resolver asks the system resolver / a DNS server
		4. Cache stores a non-empty result in memory
		5. Cache returns the addresses

		Resolve may block for a full network round trip. It may return zero, one or many
		addresses, or an error describing why the name could not be resolved.
	*/
	Resolve(ctx context.Context, domain string) ([]string, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, domain string) ([]string, error)

func (f ResolverFunc) Resolve(ctx context.Context, domain string) ([]string, error) {
	return f(ctx, domain)
}
