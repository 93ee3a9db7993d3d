package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL          string
	Category         string
	NumProducts      int
	SeedMonths       int
	Duration         time.Duration
	WriteWorkers     int
	ForecastWorkers  int
	BatchSize        int
	ForecastInterval time.Duration
	SkipSeed         bool
	APIKey           string
	HTTPClient       *http.Client // Shared HTTP client for connection pooling
}

// Metrics holds benchmark metrics
type Metrics struct {
	WriteLatencies     []float64
	ForecastLatencies  []float64
	WriteErrors        int64
	ForecastErrors     int64
	WriteSuccess       int64
	ForecastSuccess    int64
	TotalWrites        int64
	TotalForecasts     int64
	FirstWriteError    string
	FirstForecastError string
	mu                 sync.Mutex
}

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	AvgLatency float64 // ms
	MinLatency float64 // ms
	MaxLatency float64 // ms
	P50Latency float64 // ms
	P95Latency float64 // ms
	P99Latency float64 // ms
	ErrorMsg   string  // First error message
}

func main() {
	// Parse flags
	config := BenchmarkConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:8080", "Base URL of the API")
	flag.StringVar(&config.Category, "category", "bench", "Category assigned to generated products")
	flag.IntVar(&config.NumProducts, "products", 50, "Number of products")
	flag.IntVar(&config.SeedMonths, "seed-months", 36, "Months of history seeded per product before the run")
	flag.DurationVar(&config.Duration, "duration", 60*time.Second, "Benchmark duration")
	flag.IntVar(&config.WriteWorkers, "write-workers", 10, "Number of concurrent transaction writers")
	flag.IntVar(&config.ForecastWorkers, "forecast-workers", 5, "Number of concurrent forecast readers")
	flag.IntVar(&config.BatchSize, "batch-size", 50, "Transactions per batch write")
	flag.DurationVar(&config.ForecastInterval, "forecast-interval", 100*time.Millisecond, "Interval between forecasts per worker")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for authentication")
	flag.BoolVar(&config.SkipSeed, "skip-seed", false, "Skip history seeding (products already have data)")
	flag.Parse()
	// Create shared HTTP client with connection pooling
	config.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	fmt.Printf("=== DemandCast Benchmark Tool ===\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  URL: %s\n", config.BaseURL)
	fmt.Printf("  Category: %s\n", config.Category)
	fmt.Printf("  Products: %d\n", config.NumProducts)
	fmt.Printf("  Seed Months: %d\n", config.SeedMonths)
	fmt.Printf("  Duration: %s\n", config.Duration)
	fmt.Printf("  Write Workers: %d\n", config.WriteWorkers)
	fmt.Printf("  Forecast Workers: %d\n", config.ForecastWorkers)
	fmt.Printf("  Batch Size: %d\n", config.BatchSize)
	fmt.Printf("  Forecast Interval: %s\n", config.ForecastInterval)
	fmt.Printf("\n")

	// Seed sales history so forecast requests have enough buckets to fit
	if !config.SkipSeed {
		if err := seedHistory(config); err != nil {
			fmt.Printf("Warning: failed to seed history: %v\n", err)
			fmt.Printf("Continuing; forecasts may fail with insufficient history...\n")
		}
	} else {
		fmt.Printf("Skipping history seeding (using existing data)\n")
	}

	// Run benchmark
	metrics := runBenchmark(config)

	// Calculate and display results
	writeResult := calculateResult("Write", metrics.WriteLatencies, metrics.WriteSuccess, metrics.WriteErrors, config.Duration, metrics.FirstWriteError)
	forecastResult := calculateResult("Forecast", metrics.ForecastLatencies, metrics.ForecastSuccess, metrics.ForecastErrors, config.Duration, metrics.FirstForecastError)

	fmt.Printf("\n=== Benchmark Results ===\n\n")
	displayResult(writeResult)
	fmt.Println()
	displayResult(forecastResult)

	// Save results to file
	saveResults(config, writeResult, forecastResult)
}

// productID returns the canonical ID for the nth generated product
func productID(n int) string {
	return fmt.Sprintf("bench-product-%04d", n)
}

// seedHistory posts one batch of synthetic monthly sales per product. The
// series carries trend plus annual seasonality so fits converge on
// something realistic rather than a flat line.
func seedHistory(config BenchmarkConfig) error {
	fmt.Printf("Seeding %d months of history for %d products...\n", config.SeedMonths, config.NumProducts)

	end := time.Now().UTC()
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -config.SeedMonths, 0)

	for p := 0; p < config.NumProducts; p++ {
		var rows []map[string]interface{}
		for m := 0; m < config.SeedMonths; m++ {
			date := start.AddDate(0, m, 0)
			seasonal := 20 * math.Sin(2*math.Pi*float64(date.Month())/12)
			quantity := 100 + float64(m)*1.5 + seasonal + rand.Float64()*10
			rows = append(rows, map[string]interface{}{
				"product_id": productID(p),
				"category":   config.Category,
				"date":       date.Format("2006-01-02"),
				"quantity":   quantity,
			})
		}

		url := fmt.Sprintf("%s/v1/transactions/batch", config.BaseURL)
		payload := map[string]interface{}{"transactions": rows}
		if err := makeRequest(config, "POST", url, payload); err != nil {
			return fmt.Errorf("seed product %s: %w", productID(p), err)
		}
	}

	// Writes are acknowledged before the consumer lands them; give the
	// ingest pipeline a moment to drain before forecasting starts.
	time.Sleep(2 * time.Second)
	fmt.Printf("History seeding completed\n")
	return nil
}

func runBenchmark(config BenchmarkConfig) *Metrics {
	metrics := &Metrics{
		WriteLatencies:    make([]float64, 0, 10000),
		ForecastLatencies: make([]float64, 0, 1000),
	}

	var wg sync.WaitGroup
	stopCh := make(chan struct{})
	startTime := time.Now()

	// Start write workers
	for i := 0; i < config.WriteWorkers; i++ {
		wg.Add(1)
		go writeWorker(i, config, metrics, stopCh, &wg)
	}

	// Start forecast workers
	for i := 0; i < config.ForecastWorkers; i++ {
		wg.Add(1)
		go forecastWorker(i, config, metrics, stopCh, &wg)
	}

	// Progress reporter
	go progressReporter(metrics, config.Duration, startTime)

	// Wait for duration
	time.Sleep(config.Duration)
	close(stopCh)
	wg.Wait()

	return metrics
}

func writeWorker(id int, config BenchmarkConfig, metrics *Metrics, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(id) + time.Now().UnixNano()))
	today := time.Now().UTC().Format("2006-01-02")

	for {
		select {
		case <-stopCh:
			return
		default:
			// Collect a batch of current-day sales rows
			var rows []map[string]interface{}
			for i := 0; i < config.BatchSize; i++ {
				rows = append(rows, map[string]interface{}{
					"product_id": productID(rng.Intn(config.NumProducts)),
					"category":   config.Category,
					"date":       today,
					"quantity":   1 + rng.Float64()*20,
				})
			}

			url := fmt.Sprintf("%s/v1/transactions/batch", config.BaseURL)
			payload := map[string]interface{}{"transactions": rows}

			start := time.Now()
			err := makeRequest(config, "POST", url, payload)
			latency := time.Since(start).Seconds() * 1000 // ms

			metrics.mu.Lock()
			metrics.WriteLatencies = append(metrics.WriteLatencies, latency)
			metrics.mu.Unlock()

			if err != nil {
				atomic.AddInt64(&metrics.WriteErrors, 1)
				metrics.mu.Lock()
				if metrics.FirstWriteError == "" {
					metrics.FirstWriteError = err.Error()
				}
				metrics.mu.Unlock()
			} else {
				// Count accepted rows, not requests
				atomic.AddInt64(&metrics.WriteSuccess, int64(config.BatchSize))
			}
			atomic.AddInt64(&metrics.TotalWrites, int64(config.BatchSize))
		}
	}
}

func forecastWorker(id int, config BenchmarkConfig, metrics *Metrics, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(int64(id)*7919 + time.Now().UnixNano()))
	periods := []int{3, 6}

	ticker := time.NewTicker(config.ForecastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			url := fmt.Sprintf("%s/v1/products/%s/forecast?periods=%d&granularity=monthly",
				config.BaseURL,
				productID(rng.Intn(config.NumProducts)),
				periods[rng.Intn(len(periods))])

			start := time.Now()
			err := makeRequest(config, "GET", url, nil)
			latency := time.Since(start).Seconds() * 1000 // ms

			metrics.mu.Lock()
			metrics.ForecastLatencies = append(metrics.ForecastLatencies, latency)
			metrics.mu.Unlock()

			if err != nil {
				atomic.AddInt64(&metrics.ForecastErrors, 1)
				metrics.mu.Lock()
				if metrics.FirstForecastError == "" {
					metrics.FirstForecastError = err.Error()
				}
				metrics.mu.Unlock()
			} else {
				atomic.AddInt64(&metrics.ForecastSuccess, 1)
			}
			atomic.AddInt64(&metrics.TotalForecasts, 1)
		}
	}
}

func progressReporter(metrics *Metrics, duration time.Duration, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		elapsed := time.Since(startTime)
		if elapsed >= duration {
			return
		}

		writes := atomic.LoadInt64(&metrics.WriteSuccess)
		forecasts := atomic.LoadInt64(&metrics.ForecastSuccess)
		writeErrors := atomic.LoadInt64(&metrics.WriteErrors)
		forecastErrors := atomic.LoadInt64(&metrics.ForecastErrors)

		writeThroughput := float64(writes) / elapsed.Seconds()
		forecastThroughput := float64(forecasts) / elapsed.Seconds()

		remaining := duration - elapsed
		fmt.Printf("[%s remaining] Writes: %d (%.0f/s, %d errors) | Forecasts: %d (%.0f/s, %d errors)\n",
			remaining.Round(time.Second), writes, writeThroughput, writeErrors,
			forecasts, forecastThroughput, forecastErrors)
	}
}

func makeRequest(config BenchmarkConfig, method, url string, data interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")
	if config.APIKey != "" {
		req.Header.Set("X-API-Key", config.APIKey)
	}

	resp, err := config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Read and discard body to reuse connection
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return nil
}

func calculateResult(operation string, latencies []float64, success, errors int64, duration time.Duration, errorMsg string) Result {
	if len(latencies) == 0 {
		return Result{
			Operation: operation,
			TotalOps:  success + errors,
			ErrorMsg:  errorMsg,
		}
	}

	// Sort for percentiles
	sort.Float64s(latencies)

	result := Result{
		Operation:  operation,
		TotalOps:   success + errors,
		SuccessOps: success,
		ErrorOps:   errors,
		Duration:   duration,
		Throughput: float64(success) / duration.Seconds(),
		MinLatency: latencies[0],
		MaxLatency: latencies[len(latencies)-1],
		P50Latency: percentile(latencies, 50),
		P95Latency: percentile(latencies, 95),
		P99Latency: percentile(latencies, 99),
		ErrorMsg:   errorMsg,
	}

	// Calculate average
	var sum float64
	for _, lat := range latencies {
		sum += lat
	}
	result.AvgLatency = sum / float64(len(latencies))

	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted)) * p / 100.0))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func displayResult(r Result) {
	fmt.Printf("=== %s Operations ===\n", r.Operation)
	fmt.Printf("Total Operations: %d\n", r.TotalOps)
	fmt.Printf("Success:          %d (%.2f%%)\n", r.SuccessOps, float64(r.SuccessOps)/float64(r.TotalOps)*100)
	fmt.Printf("Errors:           %d (%.2f%%)\n", r.ErrorOps, float64(r.ErrorOps)/float64(r.TotalOps)*100)
	fmt.Printf("Duration:         %s\n", r.Duration)
	fmt.Printf("Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && len(r.ErrorMsg) > 0 {
		fmt.Printf("First Error:      %s\n", r.ErrorMsg)
	}
	fmt.Printf("\nLatency (ms):\n")
	fmt.Printf("  Min:  %.2f\n", r.MinLatency)
	fmt.Printf("  Avg:  %.2f\n", r.AvgLatency)
	fmt.Printf("  P50:  %.2f\n", r.P50Latency)
	fmt.Printf("  P95:  %.2f\n", r.P95Latency)
	fmt.Printf("  P99:  %.2f\n", r.P99Latency)
	fmt.Printf("  Max:  %.2f\n", r.MaxLatency)
}

func saveResults(config BenchmarkConfig, writeResult, forecastResult Result) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("benchmark_results/api_benchmark_%s.txt", timestamp)

	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Failed to create result file: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== DemandCast API Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(f, "Configuration:\n")
	_, _ = fmt.Fprintf(f, "  URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(f, "  Category: %s\n", config.Category)
	_, _ = fmt.Fprintf(f, "  Products: %d\n", config.NumProducts)
	_, _ = fmt.Fprintf(f, "  Seed Months: %d\n", config.SeedMonths)
	_, _ = fmt.Fprintf(f, "  Duration: %s\n", config.Duration)
	_, _ = fmt.Fprintf(f, "  Write Workers: %d\n", config.WriteWorkers)
	_, _ = fmt.Fprintf(f, "  Forecast Workers: %d\n", config.ForecastWorkers)
	_, _ = fmt.Fprintf(f, "  Batch Size: %d\n", config.BatchSize)
	_, _ = fmt.Fprintf(f, "\n")

	writeResultToFile(f, "Write", writeResult)
	_, _ = fmt.Fprintf(f, "\n")
	writeResultToFile(f, "Forecast", forecastResult)

	fmt.Printf("\nResults saved to: %s\n", filename)
}

func writeResultToFile(f *os.File, name string, r Result) {
	_, _ = fmt.Fprintf(f, "=== %s Operations ===\n", name)
	_, _ = fmt.Fprintf(f, "Total Operations: %d\n", r.TotalOps)
	_, _ = fmt.Fprintf(f, "Success:          %d (%.2f%%)\n", r.SuccessOps, float64(r.SuccessOps)/float64(r.TotalOps)*100)
	_, _ = fmt.Fprintf(f, "Errors:           %d (%.2f%%)\n", r.ErrorOps, float64(r.ErrorOps)/float64(r.TotalOps)*100)
	_, _ = fmt.Fprintf(f, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(f, "Throughput:       %.2f ops/sec\n", r.Throughput)
	_, _ = fmt.Fprintf(f, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(f, "  Min:  %.2f\n", r.MinLatency)
	_, _ = fmt.Fprintf(f, "  Avg:  %.2f\n", r.AvgLatency)
	_, _ = fmt.Fprintf(f, "  P50:  %.2f\n", r.P50Latency)
	_, _ = fmt.Fprintf(f, "  P95:  %.2f\n", r.P95Latency)
	_, _ = fmt.Fprintf(f, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(f, "  Max:  %.2f\n", r.MaxLatency)
}
