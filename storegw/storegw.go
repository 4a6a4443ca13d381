// Package storegw implements the store gateway: typed CRUD over the five
// core tables plus the two append-only auxiliary tables, a single
// process-wide write mutex, and bounded-backoff retry on transient
// conflicts. The backing here is in-process — a chromem-go vector index for
// long-term memories and guarded maps for the relational tables — behind a
// method set a production vector store can be slotted into.
package storegw

import (
	"context"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/agentmemory/internal/agerr"
)

// Config configures the Store Gateway.
type Config struct {
	// PoolMin and PoolMax size the connection-pool wrapper. The in-process
	// backend below does not itself need pooling; the fields exist so a
	// production backend can be dropped in behind the same Gateway without
	// a caller-visible change.
	PoolMin int
	PoolMax int

	// HotRowCacheCapacity sizes the optional ristretto-backed read cache for
	// session and long-term-memory lookups. Zero disables the cache.
	HotRowCacheCapacity int64

	// RetryInitial, RetryFactor, and RetryCap parameterize the bounded
	// exponential backoff on transient-store conflicts.
	RetryInitial time.Duration
	RetryFactor  float64
	RetryCap     time.Duration
	RetryMax     int
}

// DefaultConfig returns the default retry and pool parameters.
func DefaultConfig() Config {
	return Config{
		PoolMin:             4,
		PoolMax:             32,
		HotRowCacheCapacity: 10_000,
		RetryInitial:        50 * time.Millisecond,
		RetryFactor:         2,
		RetryCap:            time.Second,
		RetryMax:            5,
	}
}

// Pool is a connection-pool wrapper. It has no behavior of its own beyond
// recording bounds; the in-process backend below borrows nothing from it. A
// production Firebolt/Elastic/Clickhouse-backed Gateway would hand real
// connections through this type instead.
type Pool struct {
	min, max int
}

// NewPool constructs a Pool, defaulting non-positive bounds to 4 and 32.
func NewPool(min, max int) *Pool {
	if min <= 0 {
		min = 4
	}
	if max <= 0 {
		max = 32
	}
	return &Pool{min: min, max: max}
}

// Bounds returns the pool's configured min and max size.
func (p *Pool) Bounds() (int, int) { return p.min, p.max }

// Gateway is the Store Gateway: one process-wide write mutex guarding every
// mutating operation across all seven tables, readers unblocked.
type Gateway struct {
	cfg Config

	writeMu sync.Mutex

	sessionMu sync.RWMutex
	sessions  map[string]*Session

	wmMu    sync.RWMutex
	wmItems map[string]map[string]*WorkingMemoryItem // sessionID -> itemID -> item
	seqMu   map[string]*sync.Mutex                   // per-session sequence-number mutex
	seqMuMu sync.Mutex                               // guards seqMu map itself

	ltm *longTermStore

	relMu sync.RWMutex
	rels  map[string]*MemoryRelationship

	auxMu         sync.Mutex
	accessLog     []AccessLogEntry
	toolErrorLog  []ToolErrorLogEntry
	serviceMetric []ServiceMetricEntry

	hotCache *hotRowCache
	pool     *Pool
}

// New constructs a Gateway backed by an in-process chromem-go vector index
// plus in-memory maps for the non-vector tables.
func New(cfg Config) *Gateway {
	if cfg.RetryMax <= 0 {
		d := DefaultConfig()
		cfg.RetryInitial, cfg.RetryFactor, cfg.RetryCap, cfg.RetryMax = d.RetryInitial, d.RetryFactor, d.RetryCap, d.RetryMax
	}
	g := &Gateway{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		wmItems:  make(map[string]map[string]*WorkingMemoryItem),
		seqMu:    make(map[string]*sync.Mutex),
		rels:     make(map[string]*MemoryRelationship),
		ltm:      newLongTermStore(chromem.NewDB()),
		pool:     NewPool(cfg.PoolMin, cfg.PoolMax),
	}
	if cfg.HotRowCacheCapacity > 0 {
		g.hotCache = newHotRowCache(cfg.HotRowCacheCapacity)
	}
	return g
}

// Pool returns the Gateway's connection-pool wrapper.
func (g *Gateway) Pool() *Pool { return g.pool }

// withWrite runs fn under the process-wide write mutex with bounded
// exponential-backoff retry on a transient-store error.
func (g *Gateway) withWrite(ctx context.Context, fn func() error) error {
	delay := g.cfg.RetryInitial
	var lastErr error
	for attempt := 0; attempt < g.cfg.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return agerr.Timeout(err, "write deadline elapsed")
		}

		g.writeMu.Lock()
		err := fn()
		g.writeMu.Unlock()

		if err == nil {
			return nil
		}
		if agerr.CodeOf(err) != agerr.CodeTransientStore {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return agerr.Timeout(ctx.Err(), "write deadline elapsed")
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * g.cfg.RetryFactor)
		if delay > g.cfg.RetryCap {
			delay = g.cfg.RetryCap
		}
	}
	return agerr.TransientStore(lastErr, "write retry budget exhausted")
}

func (g *Gateway) sessionMutex(sessionID string) *sync.Mutex {
	g.seqMuMu.Lock()
	defer g.seqMuMu.Unlock()
	mu, ok := g.seqMu[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		g.seqMu[sessionID] = mu
	}
	return mu
}

// RecordToolError appends a best-effort row to the tool-error-log table. A
// failure here never fails the triggering operation, so this method has no
// error return.
func (g *Gateway) RecordToolError(entry ToolErrorLogEntry) {
	g.auxMu.Lock()
	defer g.auxMu.Unlock()
	g.toolErrorLog = append(g.toolErrorLog, entry)
}

// RecordServiceMetric appends a best-effort row to the service-metrics table.
func (g *Gateway) RecordServiceMetric(entry ServiceMetricEntry) {
	g.auxMu.Lock()
	defer g.auxMu.Unlock()
	g.serviceMetric = append(g.serviceMetric, entry)
}

// ToolErrorLog returns a snapshot of the tool-error-log table, newest last.
func (g *Gateway) ToolErrorLog() []ToolErrorLogEntry {
	g.auxMu.Lock()
	defer g.auxMu.Unlock()
	out := make([]ToolErrorLogEntry, len(g.toolErrorLog))
	copy(out, g.toolErrorLog)
	return out
}

// ServiceMetrics returns a snapshot of the service-metrics table, newest last.
func (g *Gateway) ServiceMetrics() []ServiceMetricEntry {
	g.auxMu.Lock()
	defer g.auxMu.Unlock()
	out := make([]ServiceMetricEntry, len(g.serviceMetric))
	copy(out, g.serviceMetric)
	return out
}
