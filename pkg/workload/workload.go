// Package workload registers the built-in cases the command-line tools can
// measure without any application code.
package workload

import (
	"context"
	"encoding/json"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/mslinn/perftest/pkg/suite"
)

func init() {
	Register(suite.Default)
}

// Register adds the built-in cases to r
func Register(r *suite.Registry) {
	r.MustRegister(suite.TestCase{Name: "sleep", Body: Sleep(6 * time.Millisecond)})
	r.MustRegister(suite.TestCase{Name: "alloc", Body: Alloc(10_000, 64)})
	r.MustRegister(suite.TestCase{Name: "sort", Body: Sort(100_000)})
	r.MustRegister(suite.TestCase{Name: "json", Body: JSON(1_000)})
	r.MustRegister(suite.TestCase{Name: "fib", Body: Fib(25)})
	r.MustRegister(suite.TestCase{Name: "gc", Body: GC})
}

// Sleep waits for d, or until ctx is done
func Sleep(d time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// retained keeps the last allocation reachable so it escapes to the heap
var retained [][]byte

// Alloc allocates n buffers of size bytes
func Alloc(n, size int) func(context.Context) error {
	return func(ctx context.Context) error {
		bufs := make([][]byte, 0, n)
		for i := 0; i < n; i++ {
			bufs = append(bufs, make([]byte, size))
		}
		retained = bufs
		return nil
	}
}

// Sort sorts n pseudo-random integers
func Sort(n int) func(context.Context) error {
	return func(ctx context.Context) error {
		rng := rand.New(rand.NewSource(42))
		values := make([]int, n)
		for i := range values {
			values[i] = rng.Int()
		}
		sort.Ints(values)
		return nil
	}
}

type record struct {
	ID    int               `json:"id"`
	Name  string            `json:"name"`
	Tags  []string          `json:"tags"`
	Attrs map[string]string `json:"attrs"`
}

// JSON round-trips n records through encoding/json
func JSON(n int) func(context.Context) error {
	return func(ctx context.Context) error {
		records := make([]record, n)
		for i := range records {
			records[i] = record{
				ID:    i,
				Name:  "record",
				Tags:  []string{"a", "b", "c"},
				Attrs: map[string]string{"k": "v"},
			}
		}
		data, err := json.Marshal(records)
		if err != nil {
			return err
		}
		var decoded []record
		return json.Unmarshal(data, &decoded)
	}
}

// Fib computes the nth Fibonacci number recursively
func Fib(n int) func(context.Context) error {
	return func(ctx context.Context) error {
		fib(n)
		return nil
	}
}

func fib(n int) int {
	if n < 2 {
		return n
	}
	return fib(n-1) + fib(n-2)
}

// GC forces a garbage collection
func GC(ctx context.Context) error {
	runtime.GC()
	return nil
}
