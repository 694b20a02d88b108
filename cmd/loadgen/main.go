// Load generator for exercising a running CAPINTEL instance.
//
// Usage:
//   go run cmd/loadgen/main.go -url http://localhost:8080 -role support -n 200 -c 8
//
// This tool:
//  1. Builds synthetic frozen decision payloads from a fixed factor pool
//  2. Posts each to /explain/{role} with the requested concurrency
//  3. Reports status counts and latency percentiles
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ExplainPayload mirrors the /explain request body.
type ExplainPayload struct {
	Decision     string   `json:"decision"`
	RiskScore    float64  `json:"risk_score"`
	ThinFileFlag bool     `json:"thin_file_flag"`
	TopNegative  []string `json:"top_negative"`
	TopPositive  []string `json:"top_positive"`
}

var negativeFactors = []string{
	"revolving_utilization",
	"dti_ratio",
	"short_credit_history",
	"recent_inquiries",
	"late_payment_count",
}

var positiveFactors = []string{
	"on_time_payment_streak",
	"low_installment_balance",
	"long_tenure_account",
	"stable_income_band",
}

func main() {
	url := flag.String("url", "http://localhost:8080", "CAPINTEL base URL")
	role := flag.String("role", "support", "audience role: customer, support, or compliance")
	total := flag.Int("n", 100, "number of requests")
	concurrency := flag.Int("c", 4, "concurrent workers")
	seed := flag.Int64("seed", 42, "payload generator seed")
	flag.Parse()

	if *total <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "n and c must be positive")
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	payloads := make([][]byte, *total)
	for i := range payloads {
		body, err := json.Marshal(randomPayload(rng))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode payload: %v\n", err)
			os.Exit(1)
		}
		payloads[i] = body
	}

	endpoint := *url + "/explain/" + *role
	client := &http.Client{Timeout: 60 * time.Second}

	var (
		mu        sync.Mutex
		latencies []time.Duration
		statuses  = map[int]int{}
		failed    atomic.Int64
	)

	jobs := make(chan []byte)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range jobs {
				reqStart := time.Now()
				resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
				elapsed := time.Since(reqStart)

				if err != nil {
					failed.Add(1)
					continue
				}
				resp.Body.Close()

				mu.Lock()
				latencies = append(latencies, elapsed)
				statuses[resp.StatusCode]++
				mu.Unlock()
			}
		}()
	}

	for _, body := range payloads {
		jobs <- body
	}
	close(jobs)
	wg.Wait()
	totalElapsed := time.Since(start)

	fmt.Printf("\nCAPINTEL load run: %d requests, %d workers, role=%s\n", *total, *concurrency, *role)
	fmt.Printf("Wall time:     %s\n", totalElapsed.Round(time.Millisecond))
	fmt.Printf("Transport errs: %d\n", failed.Load())
	for code, count := range statuses {
		fmt.Printf("HTTP %d:       %d\n", code, count)
	}

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("Latency p50:   %s\n", percentile(latencies, 0.50).Round(time.Millisecond))
		fmt.Printf("Latency p95:   %s\n", percentile(latencies, 0.95).Round(time.Millisecond))
		fmt.Printf("Latency p99:   %s\n", percentile(latencies, 0.99).Round(time.Millisecond))
	}
}

// randomPayload builds one synthetic frozen decision.
func randomPayload(rng *rand.Rand) ExplainPayload {
	score := rng.Float64()
	decision := "Approved"
	if score > 0.5 {
		decision = "Rejected"
	}

	return ExplainPayload{
		Decision:     decision,
		RiskScore:    score,
		ThinFileFlag: rng.Intn(4) == 0,
		TopNegative:  sample(rng, negativeFactors, 1+rng.Intn(3)),
		TopPositive:  sample(rng, positiveFactors, rng.Intn(3)),
	}
}

func sample(rng *rand.Rand, pool []string, n int) []string {
	idx := rng.Perm(len(pool))
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(p * float64(len(sorted)-1))
	return sorted[i]
}
