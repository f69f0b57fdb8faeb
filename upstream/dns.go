package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"

	"github.com/krisalay/dns-cache/types"
)

// DNS asks one DNS server for A and AAAA records.
type DNS struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
}

// NewDNS creates a client for server. A timeout <= 0 means DefaultTimeout.
func NewDNS(server string, timeout time.Duration) *DNS {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DNS{
		server: withPort(server),
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// Server returns the host:port being queried.
func (d *DNS) Server() string { return d.server }

/*
Resolve queries A, then AAAA, and returns the IPv4 addresses followed by the IPv6
ones, each in answer order. Records that are not addresses (CNAME chains, ...) are skipped.

  - NXDOMAIN on A         → ResolutionError "not found"
  - other failing rcode   → ResolutionError with the rcode name (SERVFAIL, REFUSED, ...)
  - no records            → empty slice, nil error

A failure of one query does not hide the other's answer: a server that returns
A records but SERVFAIL for AAAA still resolves. The error is returned only when
no address was found.
*/
func (d *DNS) Resolve(ctx context.Context, domain string) ([]string, error) {
	if domain == "" {
		return nil, &types.ResolutionError{Domain: domain, Reason: "empty domain name"}
	}
	if _, ok := dns.IsDomainName(domain); !ok {
		return nil, &types.ResolutionError{Domain: domain, Reason: "invalid domain name"}
	}

	var (
		addrs    []string
		firstErr error
	)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := d.query(ctx, domain, qtype)
		if err != nil {
			if qtype == dns.TypeA && types.IsNotFound(err) {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		addrs = append(addrs, found...)
	}

	if len(addrs) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return addrs, nil
}

func (d *DNS) query(ctx context.Context, domain string, qtype uint16) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), qtype)
	m.RecursionDesired = true

	in, _, err := d.udp.ExchangeContext(ctx, m, d.server)
	if err == nil && in.Truncated {
		in, _, err = d.tcp.ExchangeContext(ctx, m, d.server)
	}
	if err != nil {
		return nil, &types.ResolutionError{
			Domain: domain,
			Reason: err.Error(),
			Err:    fmt.Errorf("query %s %s: %w", dns.TypeToString[qtype], d.server, err),
		}
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, types.NotFound(domain, nil)
	default:
		return nil, &types.ResolutionError{Domain: domain, Reason: dns.RcodeToString[in.Rcode]}
	}

	var out []string
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		}
	}
	return out, nil
}
