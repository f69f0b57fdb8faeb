package upstream

import (
	"context"
	"errors"
	"net"

	"github.com/krisalay/dns-cache/types"
)

// System resolves through net.Resolver, i.e. whatever the host is configured to use
// (hosts file, resolv.conf, the platform resolver).
type System struct {
	r *net.Resolver
}

// NewSystem wraps r; nil means net.DefaultResolver.
func NewSystem(r *net.Resolver) *System {
	if r == nil {
		r = net.DefaultResolver
	}
	return &System{r: r}
}

// Resolve returns every address the system reports for domain.
func (s *System) Resolve(ctx context.Context, domain string) ([]string, error) {
	if domain == "" {
		return nil, &types.ResolutionError{Domain: domain, Reason: "empty domain name"}
	}

	addrs, err := s.r.LookupHost(ctx, domain)
	if err != nil {
		return nil, fromNetError(domain, err)
	}
	return addrs, nil
}

func fromNetError(domain string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return types.NotFound(domain, err)
		}
		return &types.ResolutionError{Domain: domain, Reason: dnsErr.Err, Err: err}
	}
	return &types.ResolutionError{Domain: domain, Reason: err.Error(), Err: err}
}
