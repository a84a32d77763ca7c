// Package badgerkv provides the durable storage engine on Badger v3.
//
// Conflict detection is always on: the executor relies on commit-time
// ErrConflict to retry read-modify-write commands and to abort queued
// transactions. Expiry rides on Badger's native entry TTL, and Watch is
// implemented over DB.Subscribe.
//
// @req RQ-0302
// @design DS-0302
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/pb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kvgate/kvgate/internal/storage"
)

// Config contains Badger tuning parameters.
type Config struct {
	// Dir is the storage directory. It identifies the engine: a second
	// Open with the same dir returns the existing engine.
	Dir string

	// SyncWrites enables fsync after each commit.
	// Default: false
	SyncWrites bool

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 1GB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// GCInterval is the pause between automatic value log GC passes.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64
}

// DefaultConfig returns the default Badger configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		SyncWrites:       false,
		CacheSize:        64 << 20,
		ValueLogFileSize: 1 << 30,
		NumMemtables:     2,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
	}
}

// Engine is the Badger-backed storage.Engine.
type Engine struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	closed atomic.Bool

	lastGC      atomic.Int64 // Unix ms of the newest GC pass
	gcReclaimed atomic.Uint64

	lsmSizeGauge   prometheus.Gauge
	vlogSizeGauge  prometheus.Gauge
	totalSizeGauge prometheus.Gauge
	lastGCGauge    prometheus.Gauge

	quit chan struct{}
	done chan struct{}
}

var _ storage.Engine = (*Engine)(nil)

var guard storage.Guard[*Engine]

// Open opens the engine for cfg.Dir, or returns the one already open
// there. Opening a different directory while one is open fails with
// storage.AlreadyOpenError.
func Open(cfg Config, logger *slog.Logger) (*Engine, error) {
	return guard.Open(cfg.Dir, func() (*Engine, error) {
		return newEngine(cfg, logger)
	})
}

func newEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badgerkv: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = dbLogger{logger}
	opts.SyncWrites = cfg.SyncWrites
	opts.DetectConflicts = true
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open db: %w", err)
	}

	e := &Engine{
		db:     db,
		cfg:    cfg,
		logger: logger,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go e.gcLoop()

	logger.Info("badger engine started",
		"dir", cfg.Dir, "sync_writes", cfg.SyncWrites,
		"gc_interval", cfg.GCInterval)

	return e, nil
}

// Begin opens a transaction.
func (e *Engine) Begin(update bool) storage.Tx {
	if e.closed.Load() {
		return &Tx{dead: true}
	}
	return &Tx{txn: e.db.NewTransaction(update), update: update}
}

// View runs fn in a read-only transaction.
func (e *Engine) View(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return e.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn, shared: true})
	})
}

// errWatchFired stops a subscription once its key changed.
var errWatchFired = errors.New("watch fired")

// Watch registers a one-shot notification for key.
func (e *Engine) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	if e.closed.Load() {
		return nil, storage.ErrClosed
	}
	ch := make(chan struct{})
	var once sync.Once
	match := []pb.Match{{Prefix: []byte(key)}}

	go func() {
		err := e.db.Subscribe(ctx, func(kvs *badger.KVList) error {
			for _, kv := range kvs.Kv {
				if string(kv.Key) == key {
					once.Do(func() { close(ch) })
					return errWatchFired
				}
			}
			return nil
		}, match)
		if err != nil && !errors.Is(err, errWatchFired) && ctx.Err() == nil {
			e.logger.Debug("watch subscription ended", "key", key, "error", err)
		}
	}()
	return ch, nil
}

// IsRetryable reports whether err is a commit conflict.
func (e *Engine) IsRetryable(err error) bool {
	return errors.Is(err, storage.ErrConflict) || errors.Is(err, badger.ErrConflict)
}

// GC runs value log garbage collection until no file is rewritten.
// Returns approximate bytes reclaimed.
func (e *Engine) GC(ctx context.Context) (uint64, error) {
	var reclaimed uint64
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return reclaimed, fmt.Errorf("badgerkv: gc: %w", err)
		}
		// Badger reports no exact figure; one pass rewrites roughly one
		// value log file's stale share.
		reclaimed += 1 << 20
	}
	e.lastGC.Store(time.Now().UnixMilli())
	e.gcReclaimed.Add(reclaimed)
	return reclaimed, nil
}

// Stats contains engine size and GC counters.
type Stats struct {
	LSMSize          uint64
	ValueLogSize     uint64
	TotalSize        uint64
	LastGCTime       int64
	GCBytesReclaimed uint64
}

// Stats reports current on-disk sizes and GC counters.
func (e *Engine) Stats() Stats {
	lsm, vlog := e.db.Size()
	s := Stats{
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		TotalSize:    uint64(lsm + vlog),
	}
	s.LastGCTime = e.lastGC.Load()
	s.GCBytesReclaimed = e.gcReclaimed.Load()
	return s
}

// Close shuts the engine down and releases the open guard.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return storage.ErrClosed
	}
	e.logger.Info("stopping badger engine")

	close(e.quit)
	<-e.done

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("badgerkv: close db: %w", err)
	}
	guard.Release(e)
	return nil
}

// RegisterMetrics registers engine gauges with registry and starts the
// publisher. Call once during initialization.
func (e *Engine) RegisterMetrics(registry *prometheus.Registry) *Engine {
	e.lsmSizeGauge = badgerGauge("lsm_size_bytes",
		"LSM tree size in bytes")
	e.vlogSizeGauge = badgerGauge("value_log_size_bytes",
		"Value log size in bytes")
	e.totalSizeGauge = badgerGauge("total_size_bytes",
		"Total on-disk size in bytes, LSM plus value log")
	e.lastGCGauge = badgerGauge("last_gc_timestamp_seconds",
		"Unix time of the newest value log GC pass")

	registry.MustRegister(e.lsmSizeGauge, e.vlogSizeGauge, e.totalSizeGauge, e.lastGCGauge)

	go e.publishLoop()
	return e
}

// badgerGauge names a gauge under the engine's metric subsystem.
func badgerGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvgate",
		Subsystem: "badger",
		Name:      name,
		Help:      help,
	})
}

const publishEvery = 15 * time.Second

func (e *Engine) publishLoop() {
	ticker := time.NewTicker(publishEvery)
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			return
		case <-ticker.C:
			s := e.Stats()
			e.lsmSizeGauge.Set(float64(s.LSMSize))
			e.vlogSizeGauge.Set(float64(s.ValueLogSize))
			e.totalSizeGauge.Set(float64(s.TotalSize))
			if ms := s.LastGCTime; ms > 0 {
				e.lastGCGauge.Set(float64(ms) / 1000.0)
			}
		}
	}
}

func (e *Engine) gcLoop() {
	defer close(e.done)

	every := e.cfg.GCInterval
	if every <= 0 {
		every = 10 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			return
		case <-ticker.C:
			e.runGC()
		}
	}
}

// runGC bounds one automatic pass; it must finish well inside the
// next tick.
func (e *Engine) runGC() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := e.GC(ctx); err != nil {
		e.logger.Error("auto gc failed", "error", err)
	}
}

// dbLogger routes Badger's printf-style logging into slog. Badger's
// info chatter lands at debug; only real problems surface.
type dbLogger struct {
	*slog.Logger
}

func (l dbLogger) Errorf(f string, v ...any)   { l.Error(fmt.Sprintf(f, v...)) }
func (l dbLogger) Warningf(f string, v ...any) { l.Warn(fmt.Sprintf(f, v...)) }
func (l dbLogger) Infof(f string, v ...any)    { l.Debug(fmt.Sprintf(f, v...)) }
func (l dbLogger) Debugf(f string, v ...any)   { l.Debug(fmt.Sprintf(f, v...)) }
