package store

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clk := newFakeClock()
	return New(ttl, WithClock(clk.Now)), clk
}

func TestGetBeforePut(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	if addrs, ok := s.Get("example.com"); ok || addrs != nil {
		t.Fatalf("expected miss, got %v %v", addrs, ok)
	}
}

func TestPutThenGet(t *testing.T) {
	s, _ := newTestStore(300 * time.Second)
	want := []string{"93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"}

	s.Put("example.com", want)

	got, ok := s.Get("example.com")
	if !ok {
		t.Fatalf("expected hit")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestKeysAreCaseSensitive(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Put("Example.com", []string{"10.0.0.1"})

	if _, ok := s.Get("example.com"); ok {
		t.Fatalf("expected lookup with different case to miss")
	}
	if _, ok := s.Get("Example.com"); !ok {
		t.Fatalf("expected exact key to hit")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	in := []string{"10.0.0.1"}
	s.Put("a.test", in)

	// Neither the caller's input nor a returned slice may alias the stored one.
	in[0] = "mutated-input"
	got, _ := s.Get("a.test")
	got[0] = "mutated-output"

	again, _ := s.Get("a.test")
	if again[0] != "10.0.0.1" {
		t.Fatalf("stored addresses were mutated: %v", again)
	}
}

func TestOverwriteDoesNotMerge(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	s.Put("d.test", []string{"10.0.0.1", "10.0.0.2"})
	s.Put("d.test", []string{"10.0.0.3"})

	got, ok := s.Get("d.test")
	if !ok || !reflect.DeepEqual(got, []string{"10.0.0.3"}) {
		t.Fatalf("expected only second value, got %v (ok=%v)", got, ok)
	}
	if s.Size() != 1 {
		t.Fatalf("expected one entry, got %d", s.Size())
	}
}

func TestOverwriteRestartsTTL(t *testing.T) {
	s, clk := newTestStore(10 * time.Second)

	s.Put("d.test", []string{"10.0.0.1"})
	clk.Advance(8 * time.Second)
	s.Put("d.test", []string{"10.0.0.2"})
	clk.Advance(8 * time.Second)

	if got, ok := s.Get("d.test"); !ok || got[0] != "10.0.0.2" {
		t.Fatalf("expected rewritten entry to still be fresh, got %v %v", got, ok)
	}
}

func TestTTLBoundary(t *testing.T) {
	const ttl = 300 * time.Second
	const eps = time.Millisecond

	s, clk := newTestStore(ttl)
	s.Put("example.com", []string{"93.184.216.34"})

	clk.Advance(ttl - eps)
	if _, ok := s.Get("example.com"); !ok {
		t.Fatalf("expected hit at t0+ttl-eps")
	}

	clk.Advance(2 * eps)
	if _, ok := s.Get("example.com"); ok {
		t.Fatalf("expected miss at t0+ttl+eps")
	}
	if s.Size() != 0 {
		t.Fatalf("expected expired entry to be evicted by Get, size=%d", s.Size())
	}
}

func TestExactTTLIsExpired(t *testing.T) {
	s, clk := newTestStore(time.Minute)
	s.Put("x.test", []string{"10.0.0.1"})

	clk.Advance(time.Minute)
	if _, ok := s.Get("x.test"); ok {
		t.Fatalf("expected entry aged exactly ttl to miss")
	}
}

func TestSizeCountsStaleEntries(t *testing.T) {
	s, clk := newTestStore(time.Minute)
	s.Put("a.test", []string{"10.0.0.1"})
	s.Put("b.test", []string{"10.0.0.2"})

	clk.Advance(2 * time.Minute)

	// Nothing has swept or read them yet.
	if s.Size() != 2 {
		t.Fatalf("expected stale entries to be counted, got %d", s.Size())
	}
}

func TestCleanupIdempotent(t *testing.T) {
	s, clk := newTestStore(time.Minute)
	s.Put("old1.test", []string{"10.0.0.1"})
	s.Put("old2.test", []string{"10.0.0.2"})

	clk.Advance(45 * time.Second)
	s.Put("new.test", []string{"10.0.0.3"})
	clk.Advance(30 * time.Second)

	if removed := s.Cleanup(); removed != 2 {
		t.Fatalf("expected first cleanup to remove 2, removed %d", removed)
	}
	if removed := s.Cleanup(); removed != 0 {
		t.Fatalf("expected second cleanup to remove nothing, removed %d", removed)
	}
	if s.Size() != 1 {
		t.Fatalf("expected fresh entry to survive, size=%d", s.Size())
	}
	if _, ok := s.Get("new.test"); !ok {
		t.Fatalf("expected new.test to remain")
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	for i := 0; i < 5; i++ {
		s.Put(fmt.Sprintf("host-%d.test", i), []string{"10.0.0.1"})
	}

	s.Clear()

	if s.Size() != 0 {
		t.Fatalf("expected empty store after clear, got %d", s.Size())
	}
	if _, ok := s.Get("host-0.test"); ok {
		t.Fatalf("expected miss after clear")
	}
}

func TestDefaultTTL(t *testing.T) {
	s := New(0)
	if s.TTL() != 300*time.Second {
		t.Fatalf("expected default ttl of 300s, got %v", s.TTL())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, clk := newTestStore(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("host-%d.test", id%4)
			for j := 0; j < 200; j++ {
				s.Put(key, []string{fmt.Sprintf("10.0.%d.%d", id, j%250)})
				s.Get(key)
				if j%50 == 0 {
					clk.Advance(100 * time.Millisecond)
					s.Cleanup()
				}
				_ = s.Size()
			}
		}(i)
	}
	wg.Wait()

	if s.Size() > 4 {
		t.Fatalf("expected at most one entry per key, got %d", s.Size())
	}
}
