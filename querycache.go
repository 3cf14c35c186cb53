package blogsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EntryStatus is the lifecycle status of a cache entry.
type EntryStatus string

const (
	StatusIdle     EntryStatus = "idle"
	StatusFetching EntryStatus = "fetching"
	StatusFresh    EntryStatus = "fresh"
	StatusStale    EntryStatus = "stale"
	StatusError    EntryStatus = "error"
)

// Entry is a point-in-time snapshot of one cache entry. Readers always see
// either the last committed value or an explicitly applied optimistic value,
// never a partially written one.
type Entry struct {
	Key       QueryKey
	Value     any
	HasValue  bool
	UpdatedAt time.Time
	Status    EntryStatus
	Err       error
}

// FetchFunc produces the value for a query key from the remote API.
type FetchFunc func(ctx context.Context) (any, error)

// QueryOptions is the caching policy for one query.
type QueryOptions struct {
	// StaleTime is the freshness window. A committed value younger than this
	// is returned without a network call. Zero falls back to the cache default.
	StaleTime time.Duration
	// Retries is the number of additional attempts after a failed fetch.
	Retries int
	// RefetchOnFocus is honored by hosting UIs that have a focus notion.
	// The cache itself never acts on it.
	RefetchOnFocus bool
}

type cacheEntry struct {
	key        QueryKey
	value      any
	hasValue   bool
	updatedAt  time.Time
	status     EntryStatus
	err        error
	generation uint64
	inflight   chan struct{}
	subs       map[int]func()
	refetch    func()
}

// QueryCache is a process-wide keyed store of server-derived data. It is an
// explicitly constructed object rather than a package-level singleton, so
// tests and embedders can hold isolated instances.
type QueryCache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	staleTime time.Duration
	nextSubID int
	logger    *slog.Logger
}

// DefaultStaleTime mirrors the 60s freshness window the web client ships with.
const DefaultStaleTime = 60 * time.Second

// NewQueryCache creates an empty cache. A zero staleTime selects
// DefaultStaleTime. A nil logger discards nothing of interest; slog.Default
// is used.
func NewQueryCache(staleTime time.Duration, logger *slog.Logger) *QueryCache {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryCache{
		entries:   make(map[string]*cacheEntry),
		staleTime: staleTime,
		logger:    logger,
	}
}

// ensure returns the single entry for key, creating it if absent.
// Callers must hold qc.mu.
func (qc *QueryCache) ensure(key QueryKey) *cacheEntry {
	id := key.String()
	e, ok := qc.entries[id]
	if !ok {
		e = &cacheEntry{
			key:    key,
			status: StatusIdle,
			subs:   make(map[int]func()),
		}
		qc.entries[id] = e
	}
	return e
}

// Get returns a snapshot of the entry for key, if one exists.
func (qc *QueryCache) Get(key QueryKey) (Entry, bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	e, ok := qc.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return snapshot(e), true
}

func snapshot(e *cacheEntry) Entry {
	return Entry{
		Key:       e.key,
		Value:     e.value,
		HasValue:  e.hasValue,
		UpdatedAt: e.updatedAt,
		Status:    e.status,
		Err:       e.err,
	}
}

// Set commits value for key. This is the optimistic-write entry point used
// by the mutation controller; the value becomes visible to readers before
// any network call settles.
func (qc *QueryCache) Set(key QueryKey, value any) {
	qc.mu.Lock()
	e := qc.ensure(key)
	e.value = value
	e.hasValue = true
	e.updatedAt = time.Now()
	e.status = StatusFresh
	e.err = nil
	subs := subscribers(e)
	qc.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Cancel supersedes the in-flight fetch for key, if any: its result will not
// be applied to the entry when it settles. The underlying network request is
// not aborted. Used by the mutation controller before an optimistic write.
func (qc *QueryCache) Cancel(key QueryKey) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	e, ok := qc.entries[key.String()]
	if !ok {
		return
	}
	e.generation++
	// Detach the in-flight marker so a fresh fetch may start immediately.
	// The superseded fetch still closes its own channel on settlement.
	e.inflight = nil
	if e.status == StatusFetching {
		if e.hasValue {
			e.status = StatusStale
		} else {
			e.status = StatusIdle
		}
	}
}

// Invalidate marks every entry whose key starts with prefix as stale and
// triggers exactly one refetch per entry that is currently observed by a
// subscriber. Entries with a fetch already in flight are not refetched again.
func (qc *QueryCache) Invalidate(prefix QueryKey) {
	qc.mu.Lock()
	var notify []func()
	var refetch []func()
	for _, e := range qc.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		if e.status != StatusFetching {
			if e.hasValue {
				e.status = StatusStale
			} else {
				e.status = StatusIdle
			}
		}
		notify = append(notify, subscribers(e)...)
		if len(e.subs) > 0 && e.refetch != nil && e.inflight == nil {
			refetch = append(refetch, e.refetch)
		}
	}
	qc.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	for _, fn := range refetch {
		fn()
	}
}

// Subscribe registers onChange to run whenever the entry for key commits a
// new value, errors, or is invalidated. The returned function unsubscribes.
func (qc *QueryCache) Subscribe(key QueryKey, onChange func()) func() {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	e := qc.ensure(key)
	id := qc.nextSubID
	qc.nextSubID++
	e.subs[id] = onChange

	return func() {
		qc.mu.Lock()
		defer qc.mu.Unlock()
		delete(e.subs, id)
	}
}

// Clear drops every entry. In-flight fetches settle into fresh entries.
func (qc *QueryCache) Clear() {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.entries = make(map[string]*cacheEntry)
}

// Fetch returns the cached value for key if it is fresh, otherwise runs fn
// and commits its result. Concurrent fetches for the same key coalesce into
// a single call of fn. A Cancel issued while fn is running suppresses the
// result; the caller then observes whatever value the canceller left behind.
func (qc *QueryCache) Fetch(ctx context.Context, key QueryKey, fn FetchFunc, opts QueryOptions) (any, error) {
	staleTime := opts.StaleTime
	if staleTime <= 0 {
		staleTime = qc.staleTime
	}

	qc.mu.Lock()
	e := qc.ensure(key)

	// Remember how to refetch this key so Invalidate can self-heal
	// subscribed entries.
	e.refetch = func() {
		go func() {
			if _, err := qc.Fetch(context.Background(), key, fn, opts); err != nil {
				qc.logger.Warn("refetch after invalidation failed",
					slog.String("key", key.String()),
					slog.String("error", err.Error()))
			}
		}()
	}

	if e.hasValue && e.status == StatusFresh && time.Since(e.updatedAt) < staleTime {
		v := e.value
		qc.mu.Unlock()
		return v, nil
	}

	if ch := e.inflight; ch != nil {
		qc.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return qc.settled(key)
	}

	gen := e.generation
	e.status = StatusFetching
	e.err = nil
	ch := make(chan struct{})
	e.inflight = ch
	qc.mu.Unlock()

	var v any
	var err error
	for attempt := 0; ; attempt++ {
		v, err = fn(ctx)
		if err == nil || attempt >= opts.Retries || ctx.Err() != nil {
			break
		}
	}

	qc.mu.Lock()
	e = qc.ensure(key)
	if e.generation != gen {
		// Superseded by Cancel: drop the result and surface the current
		// (typically optimistic) state instead.
		if e.inflight == ch {
			e.inflight = nil
		}
		qc.mu.Unlock()
		close(ch)
		return qc.settled(key)
	}

	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.value = v
		e.hasValue = true
		e.updatedAt = time.Now()
		e.status = StatusFresh
		e.err = nil
	}
	if e.inflight == ch {
		e.inflight = nil
	}
	subs := subscribers(e)
	qc.mu.Unlock()
	close(ch)

	for _, fn := range subs {
		fn()
	}
	return v, err
}

// settled reads the entry after a coalesced or superseded fetch resolved.
func (qc *QueryCache) settled(key QueryKey) (any, error) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	e, ok := qc.entries[key.String()]
	if !ok {
		return nil, ErrNotCached
	}
	if e.err != nil {
		return nil, e.err
	}
	if !e.hasValue {
		return nil, ErrNotCached
	}
	return e.value, nil
}

func subscribers(e *cacheEntry) []func() {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		out = append(out, fn)
	}
	return out
}
