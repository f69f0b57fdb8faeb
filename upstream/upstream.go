// Package upstream holds the real name resolution mechanisms the cache sits in front of:
// the operating system's resolver and a plain DNS client talking to one server.
package upstream

import (
	"net"
	"strings"
	"time"

	"github.com/krisalay/dns-cache/types"
)

// DefaultTimeout bounds a single DNS exchange.
const DefaultTimeout = 5 * time.Second

// New picks an implementation from addr: empty means the system resolver,
// anything else is a DNS server address ("1.1.1.1", "9.9.9.9:53", "[::1]:5353").
func New(addr string, timeout time.Duration) types.Resolver {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return NewSystem(nil)
	}
	return NewDNS(addr, timeout)
}

// withPort appends the standard DNS port when addr has none.
func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), "53")
}
