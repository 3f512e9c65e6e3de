package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	tipo        string
)

// Metrics
var (
	totalRequests uint64
	success200    uint64
	fail4xx       uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 5, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&tipo, "tipo", "emitidos", "Query direction: emitidos | recibidos")
}

func main() {
	flag.Parse()

	payload, _ := json.Marshal(map[string]interface{}{
		"empresa_id":   1,
		"fecha_inicio": "2024-01-01",
		"fecha_final":  "2024-01-31",
		"tipo":         tipo,
	})

	log.Printf("Benchmarking %s/api/v1/verificaciones with %d workers for %s", targetURL, concurrency, duration)

	client := &http.Client{Timeout: 120 * time.Second}
	deadline := time.Now().Add(duration)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				atomic.AddUint64(&totalRequests, 1)

				resp, err := client.Post(
					targetURL+"/api/v1/verificaciones",
					"application/json",
					bytes.NewReader(payload))
				if err != nil {
					atomic.AddUint64(&failOther, 1)
					continue
				}
				resp.Body.Close()

				switch {
				case resp.StatusCode == http.StatusOK:
					atomic.AddUint64(&success200, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddUint64(&fail4xx, 1)
				default:
					atomic.AddUint64(&failOther, 1)
				}
			}
		}()
	}
	wg.Wait()

	fmt.Fprintf(os.Stdout, "Total:  %d\n", atomic.LoadUint64(&totalRequests))
	fmt.Fprintf(os.Stdout, "200:    %d\n", atomic.LoadUint64(&success200))
	fmt.Fprintf(os.Stdout, "4xx:    %d\n", atomic.LoadUint64(&fail4xx))
	fmt.Fprintf(os.Stdout, "Other:  %d\n", atomic.LoadUint64(&failOther))
}
