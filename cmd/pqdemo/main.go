// Command pqdemo drives the lock-free queue with concurrent producers
// and consumers and reports throughput and pop-latency percentiles.
// Audit/events/metrics pieces are attached only if their flags are set;
// otherwise the harness runs with zero external dependencies.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jayshah2111/lock-free-concurrent-pq/internal/audit"
	"github.com/jayshah2111/lock-free-concurrent-pq/internal/events"
	"github.com/jayshah2111/lock-free-concurrent-pq/internal/metrics"
	"github.com/jayshah2111/lock-free-concurrent-pq/pq"
)

func main() {
	producers := flag.Int("producers", 4, "number of producer goroutines")
	consumers := flag.Int("consumers", 4, "number of consumer goroutines")
	iterations := flag.Int("iters", 100000, "pushes per producer")
	auditDir := flag.String("audit-dir", "", "if set, record every pop to a pebble-backed audit log at this path")
	kafkaBrokers := flag.String("kafka-brokers", "", "comma-separated brokers; if set, publish pop events via internal/events")
	kafkaTopic := flag.String("kafka-topic", "pq-pops", "topic for -kafka-brokers")
	broadcastTopic := flag.String("kafka-broadcast-topic", "pq-pops-replay", "topic the audit-log broadcaster replays onto; requires -audit-dir and -kafka-brokers")
	enableMetrics := flag.Bool("metrics", false, "collect prometheus pop-latency percentiles via internal/metrics")
	flag.Parse()

	q := pq.New[int](pq.Options{})

	var stats *metrics.Stats
	if *enableMetrics {
		stats = metrics.New()
	}

	var auditLog *audit.Log[int]
	if *auditDir != "" {
		var err error
		auditLog, err = audit.Open(*auditDir, intCodec())
		if err != nil {
			log.Fatalf("audit.Open: %v", err)
		}
		defer auditLog.Close()
	}

	var publisher *events.Publisher[int]
	if *kafkaBrokers != "" {
		publisher = events.NewPublisher(strings.Split(*kafkaBrokers, ","), *kafkaTopic, intCodec().Encode)
		defer publisher.Close()
	}

	if *auditDir != "" && *kafkaBrokers != "" {
		broadcaster, err := events.NewBroadcaster(auditLog, strings.Split(*kafkaBrokers, ","), *broadcastTopic)
		if err != nil {
			log.Fatalf("events.NewBroadcaster: %v", err)
		}
		defer broadcaster.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		broadcaster.Start(ctx)
	}

	var producersDone atomic.Bool
	var totalPushes, totalPops atomic.Int64
	var seq atomic.Uint64

	popLatencies := make([][]time.Duration, *consumers)

	var wg sync.WaitGroup
	wg.Add(*producers)
	for i := 0; i < *producers; i++ {
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			for j := 0; j < *iterations; j++ {
				q.Push(rng.Int())
				totalPushes.Add(1)
				if stats != nil {
					stats.Pushed.Inc()
				}
			}
		}()
	}

	var cwg sync.WaitGroup
	cwg.Add(*consumers)
	for i := 0; i < *consumers; i++ {
		go func(i int) {
			defer cwg.Done()
			lat := make([]time.Duration, 0, *iterations)
			last := -1
			for !producersDone.Load() || !q.Empty() {
				t1 := time.Now()
				v, ok := q.Pop()
				if !ok {
					continue
				}
				d := time.Since(t1)
				lat = append(lat, d)
				totalPops.Add(1)

				// Per-thread ordering is a liveness hint only once more
				// than one consumer is running; the queue's real
				// guarantees are P1 (sortedness under quiescence) and
				// P2 (conservation), not per-consumer monotonicity.
				if v < last && *consumers == 1 {
					log.Fatalf("monotonicity violated: %d after %d", v, last)
				}
				last = v

				if stats != nil {
					stats.Popped.Inc()
					stats.PopLatency.Observe(d.Seconds())
				}

				s := seq.Add(1) - 1
				if auditLog != nil {
					if err := auditLog.Record(s, time.Now().UnixNano(), v); err != nil {
						log.Printf("audit record failed: %v", err)
					}
				}
				if publisher != nil {
					if err := publisher.PublishPop(context.Background(), s, v); err != nil {
						log.Printf("publish failed: %v", err)
					}
				}
			}
			popLatencies[i] = lat
		}(i)
	}

	start := time.Now()
	wg.Wait()
	producersDone.Store(true)
	cwg.Wait()
	elapsed := time.Since(start)

	ops := totalPushes.Load() + totalPops.Load()
	fmt.Printf("Throughput: %.0f ops/sec\n", float64(ops)/elapsed.Seconds())

	var pops []time.Duration
	for _, lat := range popLatencies {
		pops = append(pops, lat...)
	}
	sort.Slice(pops, func(i, j int) bool { return pops[i] < pops[j] })

	percentile := func(p float64) time.Duration {
		if len(pops) == 0 {
			return 0
		}
		idx := int(p / 100.0 * float64(len(pops)))
		if idx >= len(pops) {
			idx = len(pops) - 1
		}
		return pops[idx]
	}

	fmt.Printf("Latency percentiles (pop): p50=%s, p99=%s, p999=%s\n",
		percentile(50), percentile(99), percentile(99.9))

	if stats != nil {
		fmt.Println("internal/metrics percentiles:")
		for quantile, v := range stats.Percentiles() {
			fmt.Printf("  p%.0f=%.6fs\n", quantile*100, v)
		}
	}

	q.Close()
}

func intCodec() audit.Codec[int] {
	return audit.Codec[int]{
		Encode: func(v int) []byte { return []byte(fmt.Sprintf("%d", v)) },
		Decode: func(b []byte) (int, error) {
			var v int
			_, err := fmt.Sscanf(string(b), "%d", &v)
			return v, err
		},
	}
}
