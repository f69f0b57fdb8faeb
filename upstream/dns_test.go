package upstream

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/krisalay/dns-cache/types"
)

// startServer runs a miekg/dns server on a random local UDP port.
func startServer(t *testing.T, h dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: h, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("dns server did not start")
	}
	return pc.LocalAddr().String()
}

// rr parses a record written in zone file syntax; the fixtures below are all valid.
func rr(s string) dns.RR {
	r, _ := dns.NewRR(s)
	return r
}

func testHandler() dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]

		switch q.Name {
		case "example.com.":
			if q.Qtype == dns.TypeA {
				m.Answer = append(m.Answer, rr("example.com. 300 IN A 93.184.216.34"))
			} else if q.Qtype == dns.TypeAAAA {
				m.Answer = append(m.Answer, rr("example.com. 300 IN AAAA 2606:2800:220:1:248:1893:25c8:1946"))
			}
		case "multi.test.":
			if q.Qtype == dns.TypeA {
				m.Answer = append(m.Answer,
					rr("multi.test. 60 IN A 10.0.0.2"),
					rr("multi.test. 60 IN A 10.0.0.1"),
				)
			}
		case "alias.test.":
			if q.Qtype == dns.TypeA {
				m.Answer = append(m.Answer,
					rr("alias.test. 60 IN CNAME target.test."),
					rr("target.test. 60 IN A 10.9.9.9"),
				)
			}
		case "v4only.test.":
			if q.Qtype == dns.TypeA {
				m.Answer = append(m.Answer, rr("v4only.test. 60 IN A 10.0.0.1"))
			} else {
				m.SetRcode(r, dns.RcodeServerFailure)
			}
		case "v6only.test.":
			if q.Qtype == dns.TypeAAAA {
				m.Answer = append(m.Answer, rr("v6only.test. 60 IN AAAA 2001:db8::1"))
			} else {
				m.SetRcode(r, dns.RcodeServerFailure)
			}
		case "v4empty.test.":
			if q.Qtype == dns.TypeAAAA {
				m.SetRcode(r, dns.RcodeServerFailure)
			}
		case "broken.test.":
			m.SetRcode(r, dns.RcodeServerFailure)
		case "nosuch.invalid.":
			m.SetRcode(r, dns.RcodeNameError)
		case "refused.test.":
			m.SetRcode(r, dns.RcodeRefused)
		case "empty.test.":
		}
		_ = w.WriteMsg(m)
	}
}

func TestDNSResolveAddresses(t *testing.T) {
	addr := startServer(t, testHandler())
	d := NewDNS(addr, time.Second)
	ctx := context.Background()

	tests := []struct {
		domain string
		want   []string
	}{
		{"example.com", []string{"93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"}},
		{"multi.test", []string{"10.0.0.2", "10.0.0.1"}},
		{"alias.test", []string{"10.9.9.9"}},
		{"v4only.test", []string{"10.0.0.1"}},
		{"v6only.test", []string{"2001:db8::1"}},
		{"example.com.", []string{"93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"}},
	}

	for _, tt := range tests {
		got, err := d.Resolve(ctx, tt.domain)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.domain, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
}

func TestDNSResolveEmpty(t *testing.T) {
	addr := startServer(t, testHandler())

	got, err := NewDNS(addr, time.Second).Resolve(context.Background(), "empty.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no addresses, got %v", got)
	}
}

func TestDNSResolveErrors(t *testing.T) {
	addr := startServer(t, testHandler())
	d := NewDNS(addr, time.Second)
	ctx := context.Background()

	tests := []struct {
		domain string
		reason string
	}{
		{"nosuch.invalid", "not found"},
		{"refused.test", "REFUSED"},
		{"broken.test", "SERVFAIL"},
		{"v4empty.test", "SERVFAIL"},
		{"", "empty domain name"},
	}

	for _, tt := range tests {
		_, err := d.Resolve(ctx, tt.domain)
		var rerr *types.ResolutionError
		if !errors.As(err, &rerr) {
			t.Errorf("Resolve(%q): expected ResolutionError, got %v", tt.domain, err)
			continue
		}
		if rerr.Error() != tt.reason {
			t.Errorf("Resolve(%q): reason %q, want %q", tt.domain, rerr.Error(), tt.reason)
		}
	}
}

func TestDNSResolveTimeout(t *testing.T) {
	// A socket nobody answers on.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	_, err = NewDNS(pc.LocalAddr().String(), 50*time.Millisecond).Resolve(context.Background(), "example.com")
	var rerr *types.ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestWithPort(t *testing.T) {
	tests := []struct{ in, want string }{
		{"1.1.1.1", "1.1.1.1:53"},
		{"9.9.9.9:5353", "9.9.9.9:5353"},
		{"::1", "[::1]:53"},
		{"[::1]", "[::1]:53"},
		{"[::1]:5353", "[::1]:5353"},
	}
	for _, tt := range tests {
		if got := withPort(tt.in); got != tt.want {
			t.Errorf("withPort(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPicksImplementation(t *testing.T) {
	if _, ok := New("", 0).(*System); !ok {
		t.Errorf("expected System for empty address")
	}
	d, ok := New("8.8.8.8", 0).(*DNS)
	if !ok {
		t.Fatalf("expected DNS for a server address")
	}
	if d.Server() != "8.8.8.8:53" {
		t.Errorf("unexpected server %q", d.Server())
	}
}

func TestSystemErrorMapping(t *testing.T) {
	nf := fromNetError("x.test", &net.DNSError{Err: "no such host", Name: "x.test", IsNotFound: true})
	if nf.Error() != "not found" {
		t.Errorf("expected not found, got %q", nf.Error())
	}

	tmo := fromNetError("x.test", &net.DNSError{Err: "i/o timeout", Name: "x.test", IsTimeout: true})
	if tmo.Error() != "i/o timeout" {
		t.Errorf("expected i/o timeout, got %q", tmo.Error())
	}

	if _, err := NewSystem(nil).Resolve(context.Background(), ""); err == nil {
		t.Errorf("expected error for empty domain")
	}
}
