package expiration

import (
	"testing"
	"time"

	"github.com/krisalay/dns-cache/types"
)

func TestFixedTTLBoundary(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ent := types.CacheEntry{Addresses: []string{"10.0.0.1"}, CreatedAt: t0}
	f := FixedTTL{TTL: 300 * time.Second}

	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{"just written", t0, false},
		{"one ms before ttl", t0.Add(300*time.Second - time.Millisecond), false},
		{"exactly ttl", t0.Add(300 * time.Second), true},
		{"after ttl", t0.Add(300*time.Second + time.Millisecond), true},
	}

	for _, tt := range tests {
		if got := f.IsExpired(ent, tt.at); got != tt.expired {
			t.Errorf("%s: IsExpired = %v, want %v", tt.name, got, tt.expired)
		}
	}
}
