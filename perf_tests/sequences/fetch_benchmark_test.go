package sequences_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Configuration from environment
var (
	apiURL      = getEnv("COLORSORT_API_URL", "http://localhost:8080")
	volumeID    = getEnvInt("PERF_VOLUME_ID", 1)
	color       = getEnv("PERF_COLOR", "BADA55")
	concurrency = getEnvInt("PERF_CONCURRENCY", 10)
)

// BenchmarkFetchSequence measures sequence fetch latency against a running API.
// The sequence is requested first and the benchmark waits until it is computed,
// so the cache path is what gets measured.
//
// Usage:
//
//	PERF_VOLUME_ID=1 go test ./perf_tests/sequences -bench=BenchmarkFetchSequence -benchtime=10000x
func BenchmarkFetchSequence(b *testing.B) {
	resp, err := http.Get(apiURL + "/health")
	if err != nil {
		b.Skip("colorsort-api not running")
	}
	resp.Body.Close()

	url := fmt.Sprintf("%s/api/v1/volumes/%d/color-sort-sequence/%s", apiURL, volumeID, color)
	waitForSequence(b, url)

	latencies := make([]time.Duration, b.N)
	var totalBytes int64
	var mu sync.Mutex

	b.ResetTimer()

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			resp, err := http.Get(url)
			if err != nil {
				b.Error(err)
				return
			}
			n, _ := io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latencies[i] = time.Since(start)

			mu.Lock()
			totalBytes += n
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	b.StopTimer()
	reportLatencies(b, latencies)
	b.SetBytes(totalBytes / int64(b.N))
}

// waitForSequence requests the color and polls until the sequence is populated
func waitForSequence(b *testing.B, url string) {
	b.Helper()

	createURL := fmt.Sprintf("%s/api/v1/volumes/%d/color-sort-sequence", apiURL, volumeID)
	req, _ := http.NewRequest(http.MethodPost, createURL, bytes.NewBufferString(fmt.Sprintf(`{"color":%q}`, color)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "perf-test")
	req.Header.Set("X-User-Role", "editor")
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
	}

	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err != nil {
			b.Fatalf("fetch failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK && len(body) > 0:
			return
		case resp.StatusCode == http.StatusNotFound:
			b.Fatalf("sequence computation failed for volume %d color %s", volumeID, color)
		}
		time.Sleep(500 * time.Millisecond)
	}
	b.Fatal("timed out waiting for sequence")
}

func reportLatencies(b *testing.B, latencies []time.Duration) {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	pct := func(p float64) time.Duration {
		return latencies[int(float64(len(latencies)-1)*p)]
	}
	b.ReportMetric(float64(pct(0.50).Microseconds()), "p50-µs")
	b.ReportMetric(float64(pct(0.95).Microseconds()), "p95-µs")
	b.ReportMetric(float64(pct(0.99).Microseconds()), "p99-µs")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
