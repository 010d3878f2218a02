// Package cache implements the Cache Manager: pair-keyed Engine Pool
// lifecycle, idle eviction, and build serialization. Per-key entries are
// tracked with a sweep goroutine for idle reclaim, and per-key build
// serialization uses golang.org/x/sync/singleflight so concurrent
// GetOrCreate calls for the same pair share one build.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"digital.vasic.nmt/internal/obslog"
	"digital.vasic.nmt/pkg/enginepool"
	"digital.vasic.nmt/pkg/models"
)

// Entry is an EngineCacheEntry: a built pool plus its idle-eviction
// bookkeeping.
type Entry struct {
	Pool         *enginepool.Pool
	lastUsed     time.Time
	deadlineArmed bool
	lastReset    time.Time
}

// BuildFunc constructs a new Engine Pool for pair; supplied by the
// coordinator, which alone knows the worker count, model bundle, and
// inference hook to use.
type BuildFunc func(ctx context.Context, pair models.Pair) (*enginepool.Pool, error)

// Options configures idle-eviction timing. Zero IdleTimeout
// disables eviction.
type Options struct {
	MemoryCheckInterval    time.Duration
	IdleTimeout            time.Duration
	TimeoutResetThreshold  time.Duration
}

// Manager is the Cache Manager (C7).
type Manager struct {
	opts   Options
	build  BuildFunc
	logger obslog.Logger

	mu      sync.Mutex
	entries map[string]*Entry
	group   singleflight.Group

	sweepStop chan struct{}
	sweeping  bool
}

// New constructs a Manager. build is invoked at most once per pair at a
// time via GetOrCreate.
func New(opts Options, build BuildFunc, logger obslog.Logger) *Manager {
	return &Manager{
		opts:    opts,
		build:   build,
		logger:  obslog.Or(logger),
		entries: make(map[string]*Entry),
	}
}

// Get returns the existing entry for pair and refreshes its idle
// deadline, or nil if absent.
func (m *Manager) Get(pair models.Pair) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[pair.Key()]
	if !ok {
		return nil
	}
	e.lastUsed = time.Now()
	return e
}

// GetOrCreate returns the existing entry for pair, or builds one via
// BuildFunc, serialized per key so concurrent callers for the same pair
// share a single build and all observe the same resulting entry.
func (m *Manager) GetOrCreate(ctx context.Context, pair models.Pair) (*Entry, error) {
	key := pair.Key()

	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		e.lastUsed = time.Now()
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if e, ok := m.entries[key]; ok {
			m.mu.Unlock()
			return e, nil
		}
		m.mu.Unlock()

		pool, buildErr := m.build(ctx, pair)
		if buildErr != nil {
			return nil, buildErr
		}

		e := &Entry{Pool: pool, lastUsed: time.Now()}
		m.mu.Lock()
		m.entries[key] = e
		firstEntry := len(m.entries) == 1
		if m.opts.IdleTimeout > 0 {
			e.deadlineArmed = true
			e.lastReset = time.Now()
		}
		m.mu.Unlock()

		if firstEntry && m.opts.IdleTimeout > 0 {
			m.startSweeper()
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// KeepAlive bumps pair's lastUsed, re-arming its deadline only if more
// than TimeoutResetThreshold has elapsed since the last arm, to avoid
// churn under a steady stream of requests.
func (m *Manager) KeepAlive(pair models.Pair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[pair.Key()]
	if !ok {
		return
	}
	now := time.Now()
	e.lastUsed = now
	if !e.deadlineArmed || now.Sub(e.lastReset) >= m.opts.TimeoutResetThreshold {
		e.deadlineArmed = true
		e.lastReset = now
	}
}

// Remove terminates pair's pool and deletes its entry, stopping the
// sweeper if the cache becomes empty.
func (m *Manager) Remove(pair models.Pair) {
	m.mu.Lock()
	e, ok := m.entries[pair.Key()]
	if ok {
		delete(m.entries, pair.Key())
	}
	empty := len(m.entries) == 0
	m.mu.Unlock()

	if ok {
		e.Pool.Terminate()
	}
	if empty {
		m.stopSweeper()
	}
}

// Keys returns every pair key currently cached.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	return out
}

func (m *Manager) startSweeper() {
	m.mu.Lock()
	if m.sweeping {
		m.mu.Unlock()
		return
	}
	m.sweeping = true
	m.sweepStop = make(chan struct{})
	stop := m.sweepStop
	m.mu.Unlock()

	go m.sweepLoop(stop)
}

func (m *Manager) stopSweeper() {
	m.mu.Lock()
	if !m.sweeping {
		m.mu.Unlock()
		return
	}
	m.sweeping = false
	stop := m.sweepStop
	m.mu.Unlock()
	close(stop)
}

func (m *Manager) sweepLoop(stop chan struct{}) {
	interval := m.opts.MemoryCheckInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	now := time.Now()

	m.mu.Lock()
	var expired []string
	for key, e := range m.entries {
		if now.Sub(e.lastUsed) >= m.opts.IdleTimeout {
			expired = append(expired, key)
		}
	}
	var pools []*enginepool.Pool
	for _, key := range expired {
		pools = append(pools, m.entries[key].Pool)
		delete(m.entries, key)
	}
	empty := len(m.entries) == 0
	m.mu.Unlock()

	for _, p := range pools {
		p.Terminate()
	}
	if empty {
		m.stopSweeper()
	}
}

// Shutdown terminates every pool and stops the sweeper, leaving the
// manager empty.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	pools := make([]*enginepool.Pool, 0, len(m.entries))
	for _, e := range m.entries {
		pools = append(pools, e.Pool)
	}
	m.entries = make(map[string]*Entry)
	m.mu.Unlock()

	for _, p := range pools {
		p.Terminate()
	}
	m.stopSweeper()
}
