package catalogs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"tiquetera/internal/api"
	"tiquetera/pkg/clock"
	"tiquetera/pkg/logger"
)

// DefaultTTL is how long fetched catalogs are served without a refresh.
const DefaultTTL = time.Hour

// FreshnessPolicy decides which timestamp governs an entry's freshness.
type FreshnessPolicy int

const (
	// SharedTTL uses one load timestamp for every catalog. Any successful
	// fetch refreshes all of them.
	SharedTTL FreshnessPolicy = iota
	// PerEntryTTL tracks a timestamp per catalog and per department.
	PerEntryTTL
)

// ParseFreshnessPolicy maps a config value to a policy. Unknown values
// select SharedTTL.
func ParseFreshnessPolicy(s string) FreshnessPolicy {
	if s == "per-entry" {
		return PerEntryTTL
	}
	return SharedTTL
}

type slot struct {
	kind         Kind
	departmentID string
}

func (s slot) String() string {
	if s.kind == KindCities {
		return string(s.kind) + ":" + s.departmentID
	}
	return string(s.kind)
}

var (
	departmentsSlot   = slot{kind: KindDepartments}
	documentTypesSlot = slot{kind: KindDocumentTypes}
)

func citiesSlot(departmentID string) slot {
	return slot{kind: KindCities, departmentID: departmentID}
}

// Cache holds reference catalogs with a TTL and serves stale data when
// the backend fails.
//
// The mutex only guards the fields below. It is never held across a
// fetch, so concurrent refreshes of one catalog race and the last
// response to arrive wins.
type Cache struct {
	fetcher   Fetcher
	ttl       time.Duration
	policy    FreshnessPolicy
	clock     clock.Clock
	log       *logger.Logger
	snapshots SnapshotStore

	mu        sync.Mutex
	entries   map[slot][]Entry
	fetchedAt map[slot]time.Time
	loadedAt  time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces the time source.
func WithClock(c clock.Clock) Option {
	return func(cc *Cache) { cc.clock = c }
}

// WithPolicy selects the freshness policy.
func WithPolicy(p FreshnessPolicy) Option {
	return func(cc *Cache) { cc.policy = p }
}

// WithLogger sets the cache logger.
func WithLogger(l *logger.Logger) Option {
	return func(cc *Cache) { cc.log = l }
}

// WithSnapshotStore persists the cache after every successful fetch.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(cc *Cache) { cc.snapshots = s }
}

// NewCache builds an empty cache. A non-positive ttl selects DefaultTTL.
func NewCache(fetcher Fetcher, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		fetcher:   fetcher,
		ttl:       ttl,
		clock:     clock.Real(),
		log:       logger.GetDefault(),
		entries:   make(map[slot][]Entry),
		fetchedAt: make(map[slot]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// FetchDepartments returns departments, from memory when fresh. On a
// failed fetch a stale copy is returned instead of the error.
func (c *Cache) FetchDepartments(ctx context.Context, useCache bool) ([]Entry, error) {
	return c.fetch(ctx, departmentsSlot, useCache, c.fetcher.Departments)
}

// FetchCitiesByDepartment returns the cities of one department with the
// same policy as FetchDepartments.
func (c *Cache) FetchCitiesByDepartment(ctx context.Context, departmentID string, useCache bool) ([]Entry, error) {
	s := citiesSlot(departmentID)
	return c.fetch(ctx, s, useCache, func(ctx context.Context) ([]Entry, error) {
		return c.fetcher.Cities(ctx, departmentID)
	})
}

// FetchDocumentTypes never fails. A 404 caches and returns
// DefaultDocumentTypes. Other failures return the cached list, stale or
// not, and fall back to the defaults without caching them.
func (c *Cache) FetchDocumentTypes(ctx context.Context, useCache bool) []Entry {
	if useCache {
		if entries, ok := c.fresh(documentTypesSlot); ok {
			c.log.LogCatalogHit(ctx, documentTypesSlot.String())
			return entries
		}
	}

	entries, err := c.fetcher.DocumentTypes(ctx)
	if err == nil {
		c.store(ctx, documentTypesSlot, entries)
		return slices.Clone(entries)
	}

	if errors.Is(err, api.ErrNotFound) {
		c.log.LogCatalogFallback(ctx, documentTypesSlot.String(), "defaults", err)
		defaults := DefaultDocumentTypes()
		c.store(ctx, documentTypesSlot, defaults)
		return slices.Clone(defaults)
	}

	if cached, ok := c.cached(documentTypesSlot); ok {
		c.log.LogCatalogFallback(ctx, documentTypesSlot.String(), "stale", err)
		return cached
	}
	c.log.LogCatalogFallback(ctx, documentTypesSlot.String(), "defaults", err)
	return DefaultDocumentTypes()
}

func (c *Cache) fetch(ctx context.Context, s slot, useCache bool, load func(context.Context) ([]Entry, error)) ([]Entry, error) {
	if useCache {
		if entries, ok := c.fresh(s); ok {
			c.log.LogCatalogHit(ctx, s.String())
			return entries, nil
		}
	}

	entries, err := load(ctx)
	if err != nil {
		if cached, ok := c.cached(s); ok {
			c.log.LogCatalogFallback(ctx, s.String(), "stale", err)
			return cached, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", s, err)
	}

	c.store(ctx, s, entries)
	return slices.Clone(entries), nil
}

// fresh returns a copy of the slot if it is present and inside the TTL.
func (c *Cache) fresh(s slot) ([]Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.entries[s]
	if !ok {
		return nil, false
	}

	stamp := c.loadedAt
	if c.policy == PerEntryTTL {
		stamp = c.fetchedAt[s]
	}
	if stamp.IsZero() || c.clock.Now().Sub(stamp) >= c.ttl {
		return nil, false
	}
	return slices.Clone(entries), true
}

// cached returns a copy of the slot regardless of age.
func (c *Cache) cached(s slot) ([]Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.entries[s]
	if !ok {
		return nil, false
	}
	return slices.Clone(entries), true
}

func (c *Cache) store(ctx context.Context, s slot, entries []Entry) {
	if entries == nil {
		entries = []Entry{}
	}
	now := c.clock.Now()

	c.mu.Lock()
	c.entries[s] = slices.Clone(entries)
	c.fetchedAt[s] = now
	c.loadedAt = now
	var snap Snapshot
	if c.snapshots != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	c.log.LogCatalogRefresh(ctx, s.String(), len(entries))

	if c.snapshots != nil {
		if err := c.snapshots.Save(ctx, snap); err != nil {
			c.log.ErrorWithContext(ctx, "failed to persist catalog snapshot", err, nil)
		}
	}
}

// CachedDepartments returns stored departments without checking age.
// nil means never fetched.
func (c *Cache) CachedDepartments() []Entry {
	entries, _ := c.cached(departmentsSlot)
	return entries
}

// CachedDocumentTypes returns stored document types without checking age.
func (c *Cache) CachedDocumentTypes() []Entry {
	entries, _ := c.cached(documentTypesSlot)
	return entries
}

// CachedCitiesByDepartment returns stored cities without checking age.
func (c *Cache) CachedCitiesByDepartment(departmentID string) []Entry {
	entries, _ := c.cached(citiesSlot(departmentID))
	return entries
}

// LoadedAt returns the time of the most recent successful fetch.
func (c *Cache) LoadedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt, !c.loadedAt.IsZero()
}

// Clear drops every catalog and the load timestamp.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[slot][]Entry)
	c.fetchedAt = make(map[slot]time.Time)
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

// PreloadResult reports what PreloadCatalogs managed to load. A nil
// catalog means it failed; its name is listed in Errors.
type PreloadResult struct {
	Departments   []Entry
	DocumentTypes []Entry
	Errors        []string
}

// OK reports whether every catalog loaded.
func (r PreloadResult) OK() bool { return len(r.Errors) == 0 }

// PreloadCatalogs loads departments and document types independently.
// One failing does not stop the other, and nothing is retried.
func (c *Cache) PreloadCatalogs(ctx context.Context) PreloadResult {
	var (
		wg     sync.WaitGroup
		result PreloadResult
		depErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Departments, depErr = c.FetchDepartments(ctx, true)
	}()
	go func() {
		defer wg.Done()
		result.DocumentTypes = c.FetchDocumentTypes(ctx, true)
	}()
	wg.Wait()

	if depErr != nil {
		c.log.ErrorWithContext(ctx, "failed to preload departments", depErr, nil)
		result.Departments = nil
		result.Errors = append(result.Errors, string(KindDepartments))
	}
	if result.DocumentTypes == nil {
		result.Errors = append(result.Errors, string(KindDocumentTypes))
	}
	return result
}
