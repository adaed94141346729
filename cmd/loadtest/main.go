// Command loadtest drives concurrent GET requests against a running
// `currency serve` instance and reports latency percentiles.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/spf13/pflag"
)

// Options holds configuration for one load test run
type Options struct {
	URL             string
	APIPath         string
	ConcurrentUsers int
	RequestsPerUser int
	Timeout         time.Duration
	TestDuration    time.Duration
	RampUpDuration  time.Duration
	ThinkTime       time.Duration
}

// Result holds the outcome of a single request
type Result struct {
	UserID     int
	RequestID  int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Success reports whether the request got a 2xx answer.
// 429 from the rate limiter counts as a failure.
func (r Result) Success() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Summary aggregates the results of a run
type Summary struct {
	TotalRequests       int
	SuccessfulRequests  int
	FailedRequests      int
	RateLimited         int
	TotalDuration       time.Duration
	AverageResponseTime time.Duration
	MinResponseTime     time.Duration
	MaxResponseTime     time.Duration
	RequestsPerSecond   float64
	ErrorRate           float64
	ResponseTime95th    time.Duration
	ResponseTime99th    time.Duration
}

func main() {
	var options Options

	flags := pflag.NewFlagSet("loadtest", pflag.ExitOnError)
	flags.StringVar(&options.URL, "url", "http://localhost:8081", "Base URL of the currency server")
	flags.StringVar(&options.APIPath, "path", "/api/v1/live?source=USD", "Request path to hit")
	flags.IntVarP(&options.ConcurrentUsers, "users", "u", 10, "Number of concurrent users")
	flags.IntVarP(&options.RequestsPerUser, "requests", "n", 100, "Number of requests per user")
	flags.DurationVar(&options.Timeout, "timeout", 30*time.Second, "Request timeout")
	flags.DurationVar(&options.TestDuration, "duration", 0, "Test duration (0 = run until all requests complete)")
	flags.DurationVar(&options.RampUpDuration, "rampup", 5*time.Second, "Ramp-up duration")
	flags.DurationVar(&options.ThinkTime, "think", 100*time.Millisecond, "Think time between requests")
	_ = flags.Parse(os.Args[1:])

	fmt.Printf("Starting load test against %s%s\n", options.URL, options.APIPath)
	fmt.Printf("Users: %d, requests per user: %d, ramp-up: %v, think: %v\n\n",
		options.ConcurrentUsers, options.RequestsPerUser, options.RampUpDuration, options.ThinkTime)

	ctx := context.Background()
	if options.TestDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.TestDuration)
		defer cancel()
	}

	printSummary(os.Stdout, Run(ctx, options))
}

// Run executes the load test and blocks until every user is done or ctx ends
func Run(ctx context.Context, options Options) Summary {
	users := max(options.ConcurrentUsers, 1)
	results := make(chan Result, users*max(options.RequestsPerUser, 0))
	client := &http.Client{Timeout: options.Timeout}
	target := options.URL + options.APIPath

	startTime := time.Now()
	rampUpDelay := options.RampUpDuration / time.Duration(users)

	var wg sync.WaitGroup
	for userID := 0; userID < users; userID++ {
		wg.Add(1)
		go func(uid int) {
			defer wg.Done()

			if !sleep(ctx, time.Duration(uid)*rampUpDelay) {
				return
			}

			for reqID := 0; reqID < options.RequestsPerUser; reqID++ {
				if ctx.Err() != nil {
					return
				}
				results <- makeRequest(ctx, client, target, uid, reqID)

				if !sleep(ctx, options.ThinkTime) {
					return
				}
			}
		}(userID)
	}

	wg.Wait()
	close(results)

	collected := make([]Result, 0, len(results))
	for result := range results {
		collected = append(collected, result)
	}
	return Summarize(collected, time.Since(startTime))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func makeRequest(ctx context.Context, client *http.Client, target string, userID, requestID int) Result {
	result := Result{UserID: userID, RequestID: requestID}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Err = err
		return result
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Duration = time.Since(start)
		result.Err = err
		return result
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	result.Duration = time.Since(start)
	result.StatusCode = resp.StatusCode
	return result
}

// Summarize computes throughput and latency statistics
func Summarize(results []Result, totalDuration time.Duration) Summary {
	summary := Summary{TotalDuration: totalDuration, TotalRequests: len(results)}
	if len(results) == 0 {
		return summary
	}

	responseTimes := make([]time.Duration, 0, len(results))
	var totalResponseTime time.Duration
	for _, result := range results {
		responseTimes = append(responseTimes, result.Duration)
		totalResponseTime += result.Duration

		if result.Success() {
			summary.SuccessfulRequests++
		} else {
			summary.FailedRequests++
		}
		if result.StatusCode == http.StatusTooManyRequests {
			summary.RateLimited++
		}
	}

	slices.Sort(responseTimes)
	summary.MinResponseTime = responseTimes[0]
	summary.MaxResponseTime = responseTimes[len(responseTimes)-1]
	summary.AverageResponseTime = totalResponseTime / time.Duration(len(responseTimes))
	summary.ResponseTime95th = percentile(responseTimes, 95)
	summary.ResponseTime99th = percentile(responseTimes, 99)

	summary.ErrorRate = float64(summary.FailedRequests) / float64(summary.TotalRequests) * 100
	if totalDuration > 0 {
		summary.RequestsPerSecond = float64(summary.TotalRequests) / totalDuration.Seconds()
	}
	return summary
}

// percentile expects sorted input
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := min(len(sorted)*p/100, len(sorted)-1)
	return sorted[index]
}

func printSummary(w io.Writer, summary Summary) {
	fmt.Fprintln(w, "=== Load Test Results ===")
	fmt.Fprintf(w, "Total Requests: %d\n", summary.TotalRequests)
	if summary.TotalRequests == 0 {
		return
	}
	fmt.Fprintf(w, "Successful Requests: %d (%.2f%%)\n", summary.SuccessfulRequests,
		float64(summary.SuccessfulRequests)/float64(summary.TotalRequests)*100)
	fmt.Fprintf(w, "Failed Requests: %d (%.2f%%), rate limited: %d\n", summary.FailedRequests, summary.ErrorRate, summary.RateLimited)
	fmt.Fprintf(w, "Total Duration: %v\n", summary.TotalDuration)
	fmt.Fprintf(w, "Requests per Second: %.2f\n", summary.RequestsPerSecond)
	fmt.Fprintf(w, "Response Time avg/min/max: %v / %v / %v\n",
		summary.AverageResponseTime, summary.MinResponseTime, summary.MaxResponseTime)
	fmt.Fprintf(w, "95th / 99th Percentile: %v / %v\n", summary.ResponseTime95th, summary.ResponseTime99th)

	fmt.Fprintln(w, "\n=== Performance Assessment ===")
	if summary.ErrorRate > 5.0 {
		fmt.Fprintf(w, "High error rate: %.2f%% (target: < 5%%)\n", summary.ErrorRate)
	}
	if summary.AverageResponseTime > 2*time.Second {
		fmt.Fprintf(w, "High average response time: %v (target: < 2s)\n", summary.AverageResponseTime)
	}
	if summary.RequestsPerSecond < 10 {
		fmt.Fprintf(w, "Low throughput: %.2f req/s (target: > 10 req/s)\n", summary.RequestsPerSecond)
	}
}
