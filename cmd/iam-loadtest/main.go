// Command iam-loadtest drives the refresh-token store through validate,
// rotate and replay phases and prints latency percentiles for each.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goIAM/refresh"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type accountState struct {
	id       string
	current  string
	previous string
	mu       sync.Mutex
}

type opFunc func(ctx context.Context, r *rand.Rand) (ok bool)

func main() {
	var (
		accounts    = flag.Int("accounts", 100000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "iam", "refresh store key prefix")
		ttl         = flag.Duration("ttl", 24*time.Hour, "refresh entry TTL")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	store := refresh.NewStore(client, *prefix, *ttl)

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range states {
		states[i].id = fmt.Sprintf("acct-%d", i)
		states[i].current = uuid.NewString()
		if err := store.Insert(ctx, states[i].id, states[i].current); err != nil {
			fmt.Fprintf(os.Stderr, "insert failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validate := runPhase(ctx, *ops, *concurrency, func(ctx context.Context, r *rand.Rand) bool {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		current := state.current
		state.mu.Unlock()
		status, err := store.Validate(ctx, state.id, current)
		return err == nil && status == refresh.StatusValid
	})

	rotate := runPhase(ctx, *ops, *concurrency, func(ctx context.Context, r *rand.Rand) bool {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		status, err := store.Consume(ctx, state.id, state.current)
		if err != nil || status != refresh.StatusValid {
			return false
		}
		next := uuid.NewString()
		if err := store.Insert(ctx, state.id, next); err != nil {
			return false
		}
		state.previous, state.current = state.current, next
		return true
	})

	// Every op presents an id that was already rotated out; ok counts detections.
	replay := runPhase(ctx, *ops, *concurrency, func(ctx context.Context, r *rand.Rand) bool {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		stale := state.previous
		state.mu.Unlock()
		if stale == "" {
			stale = uuid.NewString()
		}
		status, err := store.Validate(ctx, state.id, stale)
		if err != nil {
			return false
		}
		return status == refresh.StatusReplayed
	})

	fmt.Println("---- results ----")
	printStats("validate", validate)
	printStats("rotate", rotate)
	printStats("replay", replay)
}

func runPhase(ctx context.Context, ops, concurrency int, op opFunc) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				ok := op(ctx, r)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
