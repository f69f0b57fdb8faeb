package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	dnscache "github.com/krisalay/dns-cache"
	"github.com/krisalay/dns-cache/janitor"
	"github.com/krisalay/dns-cache/store"
	"github.com/krisalay/dns-cache/types"
)

// ================= UPSTREAM =================

// slowUpstream answers every domain after a fixed delay, like a network round trip.
type slowUpstream struct {
	delay time.Duration
	calls atomic.Int64
}

func (u *slowUpstream) Resolve(ctx context.Context, domain string) ([]string, error) {
	u.calls.Add(1)
	select {
	case <-time.After(u.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []string{"10.0.0.1", "10.0.0.2"}, nil
}

// ================= BENCHMARK =================

func main() {
	var (
		domains    = flag.Int("domains", 1000, "distinct domains")
		goroutines = flag.Int("goroutines", 200, "concurrent callers")
		opsPerG    = flag.Int("ops", 5000, "lookups per goroutine")
		rtt        = flag.Duration("rtt", 2*time.Millisecond, "simulated upstream latency")
		ttl        = flag.Duration("ttl", 300*time.Second, "cache ttl")
		coalesce   = flag.Bool("coalesce", false, "coalesce concurrent identical misses")
	)
	flag.Parse()

	ctx := context.Background()

	fmt.Println("\n================ RESOLVER CACHE BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Domains      :", *domains)
	fmt.Println("Goroutines   :", *goroutines)
	fmt.Println("Ops/Goroutine:", *opsPerG)
	fmt.Println("Upstream RTT :", *rtt)
	fmt.Println("TTL          :", *ttl)
	fmt.Println("Coalesce     :", *coalesce)
	fmt.Println("---------------------------------")

	// ---------------- Cache ----------------
	up := &slowUpstream{delay: *rtt}
	counters := &types.Counters{}
	st := store.New(*ttl)

	opts := []dnscache.Option{dnscache.WithMetrics(counters)}
	if *coalesce {
		opts = append(opts, dnscache.WithCoalescing())
	}
	r := dnscache.New(st, up, opts...)

	// The janitor runs alongside the load, as it would in the service.
	jctx, stop := context.WithCancel(ctx)
	go janitor.New(st, time.Second, janitor.WithMetrics(counters)).Run(jctx)

	names := make([]string, *domains)
	for i := range names {
		names[i] = fmt.Sprintf("host-%d.bench.test", i)
	}

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(*goroutines)
	for i := 0; i < *goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < *opsPerG; j++ {
				r.ResolveWithCache(ctx, names[(id+j)%len(names)])
			}
		}(i)
	}
	wg.Wait()

	duration := time.Since(start)
	stop()

	totalOps := *goroutines * *opsPerG
	stats := counters.Snapshot()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Hits / Misses    : %d / %d\n", stats.Hits, stats.Misses)
	fmt.Printf("Upstream Calls   : %d\n", up.calls.Load())
	fmt.Printf("Cache Size       : %d\n", r.CacheSize())
	fmt.Println("=========================================")
}
