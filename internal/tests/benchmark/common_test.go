package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/kvgate/kvgate/internal/auth"
	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/executor"
	"github.com/kvgate/kvgate/internal/storage/memkv"
)

// KeyCounts defines the store sizes for benchmarking.
var KeyCounts = []int{1000, 10000, 100000, 500000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 100000}

// benchKey returns the i'th benchmark key.
func benchKey(i int) string {
	return fmt.Sprintf("bench:key:%08d", i)
}

// valueOfSize returns a deterministic payload of n bytes.
func valueOfSize(n int) []byte {
	v := make([]byte, n)
	for i := range v {
		v[i] = byte('a' + i%26)
	}
	return v
}

// prefillStore fills a store with count keys carrying 64-byte values.
func prefillStore(b *testing.B, store *memkv.Store, count int) {
	value := valueOfSize(64)
	tx := store.Begin(true)
	for i := 0; i < count; i++ {
		if err := tx.Set(benchKey(i), value); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		b.Fatalf("Commit failed: %v", err)
	}
}

// newExecutor builds an executor over a fresh in-memory store with
// authentication disabled and logging discarded.
func newExecutor(b *testing.B) (*executor.Executor, *memkv.Store) {
	store := memkv.New()
	b.Cleanup(func() { store.Close() })

	users, err := auth.NewRegistry(nil)
	if err != nil {
		b.Fatalf("NewRegistry failed: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return executor.New(store, users, log), store
}

// mustParse decodes a single request frame into a command.
func mustParse(b *testing.B, frame []byte) command.Command {
	cmd, _, err := command.Parse(frame)
	if err != nil {
		b.Fatalf("Parse failed: %v", err)
	}
	return cmd
}

// sizeLabel returns a human-readable size label.
func sizeLabel(size int) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%dMB", size/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dB", size)
	}
}

// reportMemory reports heap usage after a run.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}
