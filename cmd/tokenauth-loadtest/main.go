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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/w22116972/tokenauth/internal/flows"
	"github.com/w22116972/tokenauth/internal/ttlstore"
	"github.com/w22116972/tokenauth/jwt"
	"github.com/w22116972/tokenauth/remote"
	"github.com/w22116972/tokenauth/session"
)

type principalState struct {
	email      string
	token      string
	credential string
	mu         sync.Mutex
}

func main() {
	var (
		principals  = flag.Int("principals", 10000, "number of principals to seed")
		revokedPct  = flag.Int("revoked-pct", 10, "percentage of seeded tokens to revoke")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (inspect + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = ttlstore.NewRedisClient(mr.Addr(), "", 0, 0)
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = ttlstore.NewRedisClient(addr, "", 0, 0)
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := ttlstore.NewRedis(client, 0)
	revocations := session.NewRevocationList(store, nil)
	refresh := session.NewRefreshStore(store, nil)
	codec, err := jwt.NewManager(jwt.Config{AccessTTL: time.Hour, Secret: []byte("loadtest-secret-loadtest-secret-0")})
	if err != nil {
		fmt.Fprintf(os.Stderr, "codec: %v\n", err)
		os.Exit(1)
	}

	states := make([]principalState, *principals)
	fmt.Printf("seeding %d principals...\n", *principals)
	startSeed := time.Now()
	for i := range states {
		email := fmt.Sprintf("user-%d@example.com", i)
		token, err := codec.Issue(email, "USER", 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		credential, err := flows.NewRefreshCredential()
		if err != nil {
			fmt.Fprintf(os.Stderr, "credential failed: %v\n", err)
			os.Exit(1)
		}
		refresh.Store(ctx, email, flows.DigestRefreshCredential(credential), 7*24*time.Hour)
		if i%100 < *revokedPct {
			revocations.Revoke(ctx, jwt.ExtractTID(token), time.Hour)
		}
		states[i] = principalState{email: email, token: token, credential: credential}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	inspectStats := runInspectPhase(ctx, remote.NewValidator(revocations, nil), states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, refresh, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("inspect", inspectStats)
	printStats("refresh", refreshStats)
}

// runInspectPhase counts denials as failures; expect roughly revoked-pct.
func runInspectPhase(ctx context.Context, v *remote.Validator, states []principalState, ops, concurrency int) phaseStats {
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
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				d := v.Inspect(ctx, states[idx].token)
				elapsed := time.Since(t0)
				if d.Denied() {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runRefreshPhase performs fetch, compare and rotate for random principals.
// Serializing per principal means any mismatch is a store fault.
func runRefreshPhase(ctx context.Context, refresh *session.RefreshStore, states []principalState, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				t0 := time.Now()
				stored, ok := refresh.Fetch(ctx, state.email)
				next, err := flows.NewRefreshCredential()
				if err == nil && ok && stored == flows.DigestRefreshCredential(state.credential) {
					refresh.Store(ctx, state.email, flows.DigestRefreshCredential(next), 7*24*time.Hour)
					state.credential = next
				} else {
					atomic.AddInt64(&failures, 1)
				}
				elapsed := time.Since(t0)
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, elapsed)
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
