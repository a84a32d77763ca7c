// Package benchmark holds cross-package performance benchmarks: frame
// decoding, command parsing, credential hashing, command execution and
// the storage engines.
//
// Run everything:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Narrow to one area, with a longer measurement window:
//
//	go test -bench=BenchmarkStore -benchtime=10s -benchmem ./internal/tests/benchmark/...
//
// For comparisons, collect repeated runs and feed them to benchstat:
//
//	go test -bench=. -benchmem -count=5 ./internal/tests/benchmark/... | tee new.txt
//	benchstat old.txt new.txt
package benchmark
