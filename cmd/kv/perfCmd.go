package kv

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/rpc/client"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for eKV servers",
		Long:    "Runs every benchmark with one connection per thread and reports the latency distribution of each one.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 16
	perfNumThreads       = 10
	perfRequests         = 1000
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	perfPercentiles = []float64{0.5, 0.95, 0.99}
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark, every thread uses its own connection"))
	key = "requests"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of requests per thread and benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("How large the value for the set-large test should be (in KB, the hex encoded request must fit into the max line size of the server)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfRequests = max(viper.GetInt("requests"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// benchmark is one named workload, op is called with the client of the
// thread and a running counter
type benchmark struct {
	name    string
	prepare func(c *client.RPCStore) error
	op      func(c *client.RPCStore, i int) error
}

// benchmarkResult holds the measurements of one benchmark
type benchmarkResult struct {
	name    string
	timer   metrics.Timer
	errors  metrics.Counter
	elapsed time.Duration
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for eKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Requests per thread: %d\n", perfNumThreads, perfRequests)
	fmt.Println()

	// one connection per thread, the client serialises requests per connection
	clients := make([]*client.RPCStore, perfNumThreads)
	for i := range clients {
		c, err := util.NewRPCStore()
		if err != nil {
			return fmt.Errorf("failed to connect client %d: %w", i, err)
		}
		clients[i] = c
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	rand.New(rand.NewSource(time.Now().UnixNano())).Read(largeValue)

	getKey, iter := getKeys("perf")
	seed := func(c *client.RPCStore) error {
		var err error
		iter(func(k string) {
			if err == nil {
				err = c.Set(k, []byte("test"))
			}
		})
		return err
	}

	benchmarks := []benchmark{
		{name: "set", op: func(c *client.RPCStore, i int) error {
			return c.Set(getKey(i), []byte("test"))
		}},
		{name: "set-large", op: func(c *client.RPCStore, i int) error {
			return c.Set(getKey(i), largeValue)
		}},
		{name: "get", prepare: seed, op: func(c *client.RPCStore, i int) error {
			_, _, err := c.Get(getKey(i))
			return err
		}},
		{name: "get-miss", op: func(c *client.RPCStore, i int) error {
			_, _, err := c.Get(fmt.Sprintf("%s/missing-%d", perfKeyPrefix, i%perfKeySpread))
			return err
		}},
		{name: "has", prepare: seed, op: func(c *client.RPCStore, i int) error {
			_, err := c.Has(getKey(i))
			return err
		}},
		{name: "mixed", prepare: seed, op: func(c *client.RPCStore, i int) error {
			if i%2 == 0 {
				return c.Set(getKey(i), []byte("test"))
			}
			_, _, err := c.Get(getKey(i))
			return err
		}},
	}

	fmt.Println("staring tests...")

	registry := metrics.NewRegistry()
	results := make([]benchmarkResult, 0, len(benchmarks))
	for _, bm := range benchmarks {
		if shouldSkip(bm.name) {
			printSkipped(bm.name)
			continue
		}
		result, err := runBenchmark(registry, bm, clients)
		if err != nil {
			return err
		}
		results = append(results, result)
		printResult(result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs bm on every client in parallel and records each request in a timer
func runBenchmark(registry metrics.Registry, bm benchmark, clients []*client.RPCStore) (benchmarkResult, error) {
	result := benchmarkResult{
		name:   bm.name,
		timer:  metrics.GetOrRegisterTimer(bm.name+".latency", registry),
		errors: metrics.GetOrRegisterCounter(bm.name+".errors", registry),
	}

	if bm.prepare != nil {
		if err := bm.prepare(clients[0]); err != nil {
			return result, fmt.Errorf("(%s) - failed to prepare: %w", bm.name, err)
		}
	}

	var wg sync.WaitGroup
	start := time.Now()
	for t, c := range clients {
		wg.Add(1)
		go func(t int, c *client.RPCStore) {
			defer wg.Done()
			for i := 0; i < perfRequests; i++ {
				opStart := time.Now()
				err := bm.op(c, t*perfRequests+i)
				result.timer.UpdateSince(opStart)
				if err != nil {
					result.errors.Inc(1)
					if result.errors.Count() <= 10 {
						fmt.Fprintf(os.Stderr, "(%s) - request failed: %v\n", bm.name, err)
					}
				}
			}
		}(t, c)
	}
	wg.Wait()
	result.elapsed = time.Since(start)

	return result, nil
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

func opsPerSec(r benchmarkResult) float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

func printSkipped(test string) {
	fmt.Printf("%-12sskipped\n", test)
}

// printResult prints the result of a benchmark in a formatted way
func printResult(r benchmarkResult) {
	snap := r.timer.Snapshot()
	ps := snap.Percentiles(perfPercentiles)

	fmt.Printf("%-12s%8d req\tmean %-10s p50 %-10s p95 %-10s p99 %-10s max %-10s\t%.0f ops/sec\terrors %d\n",
		r.name,
		snap.Count(),
		time.Duration(snap.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		time.Duration(ps[2]).Round(time.Microsecond),
		time.Duration(snap.Max()).Round(time.Microsecond),
		opsPerSec(r),
		r.errors.Count(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []benchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Requests", "Errors", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "OpsPerSec",
		"Endpoint", "TimeoutSec", "Codec", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, r := range results {
		snap := r.timer.Snapshot()
		ps := snap.Percentiles(perfPercentiles)

		row := []string{
			r.name,
			strconv.FormatInt(snap.Count(), 10),
			strconv.FormatInt(r.errors.Count(), 10),
			fmt.Sprintf("%.0f", snap.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(snap.Max(), 10),
			fmt.Sprintf("%.0f", opsPerSec(r)),
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("codec"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
