package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pvzzle/seismicbot/internal/app"
	"github.com/pvzzle/seismicbot/internal/seismic"
	"github.com/pvzzle/seismicbot/internal/storage"

	"golang.org/x/time/rate"
)

type opType int

const (
	opSave opType = iota
	opLoad
)

func main() {
	var (
		driver  = flag.String("driver", "sqlite", "storage driver: sqlite or postgres")
		dsn     = flag.String("dsn", "", "Postgres DSN")
		path    = flag.String("sqlite", "loadtest.db", "SQLite file")
		dur     = flag.Duration("dur", 60*time.Second, "test duration")
		warmup  = flag.Duration("warmup", 5*time.Second, "warmup duration (not counted)")
		avgRPS  = flag.Int("avg-rps", 100, "avg RPS")
		peakRPS = flag.Int("peak-rps", 500, "peak RPS (during ramp)")
		ramp    = flag.Duration("ramp", 10*time.Second, "ramp-up duration to peak")
		rwRatio = flag.Int("rw", 4, "loads per save")
		workers = flag.Int("workers", 16, "concurrent workers")
		records = flag.Int("records", 50, "records per stored history")
		wallets = flag.Int("wallets", 100, "distinct history keys")
	)
	flag.Parse()

	ctx := context.Background()

	kv, release, err := app.OpenKV(ctx, app.Config{
		StorageDriver: *driver,
		PostgresURL:   *dsn,
		SQLitePath:    *path,
	})
	if err != nil {
		panic(err)
	}
	defer release()

	b := bench{kv: kv, records: *records, wallets: *wallets}

	fmt.Println("starting warmup:", *warmup)
	b.runPhase(ctx, *workers, *avgRPS, *avgRPS, 0, *warmup, *rwRatio, false)

	fmt.Println("starting measured test:", *dur)
	res := b.runPhase(ctx, *workers, *avgRPS, *peakRPS, *ramp, *dur, *rwRatio, true)

	printReport(res)
}

type results struct {
	totalOps   uint64
	loadOps    uint64
	saveOps    uint64
	errOps     uint64
	latencies  []time.Duration // measured ops only
	startedAt  time.Time
	finishedAt time.Time
}

type bench struct {
	kv      storage.KV
	records int
	wallets int
}

func (b bench) runPhase(
	ctx context.Context,
	workers int,
	avgRPS int,
	peakRPS int,
	ramp time.Duration,
	dur time.Duration,
	rw int,
	collect bool,
) *results {
	ctx, cancel := context.WithTimeout(ctx, dur)
	defer cancel()

	lim := rate.NewLimiter(rate.Limit(avgRPS), avgRPS)
	jobs := make(chan opType, 1024)

	var (
		res results
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	res.startedAt = time.Now()

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano()))
			for op := range jobs {
				t0 := time.Now()
				err := b.doOp(ctx, op, r)
				dt := time.Since(t0)

				atomic.AddUint64(&res.totalOps, 1)
				if op == opLoad {
					atomic.AddUint64(&res.loadOps, 1)
				} else {
					atomic.AddUint64(&res.saveOps, 1)
				}
				if err != nil {
					atomic.AddUint64(&res.errOps, 1)
					continue
				}
				if collect {
					mu.Lock()
					res.latencies = append(res.latencies, dt)
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(jobs)

		// rw loads, then one save
		pattern := make([]opType, 0, rw+1)
		for i := 0; i < rw; i++ {
			pattern = append(pattern, opLoad)
		}
		pattern = append(pattern, opSave)
		idx := 0

		rampStart := time.Now()
		for {
			if err := lim.Wait(ctx); err != nil {
				return
			}

			if ramp > 0 {
				el := time.Since(rampStart)
				if el < ramp {
					cur := float64(avgRPS) + (float64(peakRPS-avgRPS) * (float64(el) / float64(ramp)))
					lim.SetLimit(rate.Limit(cur))
				} else {
					lim.SetLimit(rate.Limit(peakRPS))
				}
			}

			jobs <- pattern[idx]
			idx = (idx + 1) % len(pattern)
		}
	}()

	wg.Wait()
	res.finishedAt = time.Now()
	return &res
}

func (b bench) doOp(ctx context.Context, op opType, r *rand.Rand) error {
	key := fmt.Sprintf("%s:%d", storage.TransactionsKey, r.Intn(b.wallets))
	switch op {
	case opLoad:
		raw, err := b.kv.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = storage.Decode(raw)
		return err
	case opSave:
		raw, err := json.Marshal(fakeHistory(r, b.records))
		if err != nil {
			return err
		}
		return b.kv.Put(ctx, key, raw)
	default:
		return nil
	}
}

func fakeHistory(r *rand.Rand, n int) []storage.TxRecord {
	out := make([]storage.TxRecord, 0, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		rec := storage.TxRecord{
			Hash:      fmt.Sprintf("0x%064x", r.Uint64()),
			To:        fmt.Sprintf("0x%040x", r.Uint64()),
			Value:     "0.001",
			Timestamp: storage.Stamp(now.Add(-time.Duration(i) * time.Minute)),
			Status:    storage.StatusSuccess,
			Network:   seismic.Target.Name,
			Source:    storage.SourceTransactions,
		}
		if i%3 == 0 {
			rec.Encrypted = true
			rec.EncryptedType = string(storage.MessageType)
			rec.Source = storage.SourceMessages
			rec.MessagePreview = "benchmark message"
		}
		out = append(out, rec)
	}
	return out
}

func printReport(res *results) {
	d := res.finishedAt.Sub(res.startedAt)
	total := atomic.LoadUint64(&res.totalOps)

	fmt.Printf("\n== REPORT ==\n")
	fmt.Printf("duration: %s\n", d)
	fmt.Printf("ops: total=%d load=%d save=%d errors=%d\n", total, res.loadOps, res.saveOps, res.errOps)
	if d > 0 {
		fmt.Printf("throughput: %.2f ops/s\n", float64(total)/d.Seconds())
	}
	if len(res.latencies) == 0 {
		fmt.Println("no latency samples")
		return
	}
	sort.Slice(res.latencies, func(i, j int) bool { return res.latencies[i] < res.latencies[j] })
	p := func(q float64) time.Duration {
		return res.latencies[int(q*float64(len(res.latencies)-1))]
	}
	fmt.Printf("latency p50=%s p95=%s p99=%s max=%s\n",
		p(0.50), p(0.95), p(0.99), res.latencies[len(res.latencies)-1],
	)
}
