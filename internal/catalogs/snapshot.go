package catalogs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tiquetera/internal/shared/constants"
	"tiquetera/pkg/cache"
)

// Snapshot is the serialized form of a Cache.
type Snapshot struct {
	Departments   []Entry            `json:"departments"`
	DocumentTypes []Entry            `json:"document_types"`
	Cities        map[string][]Entry `json:"cities,omitempty"`
	LoadedAt      time.Time          `json:"loaded_at"`
	// FetchedAt is keyed by catalog name, "cities:<id>" for cities.
	FetchedAt map[string]time.Time `json:"fetched_at,omitempty"`
}

// SnapshotStore persists snapshots between processes.
type SnapshotStore interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context) (Snapshot, bool, error)
}

func (c *Cache) snapshotLocked() Snapshot {
	snap := Snapshot{
		LoadedAt:  c.loadedAt,
		Cities:    map[string][]Entry{},
		FetchedAt: map[string]time.Time{},
	}
	for s, entries := range c.entries {
		switch s.kind {
		case KindDepartments:
			snap.Departments = entries
		case KindDocumentTypes:
			snap.DocumentTypes = entries
		case KindCities:
			snap.Cities[s.departmentID] = entries
		}
		snap.FetchedAt[s.String()] = c.fetchedAt[s]
	}
	return snap
}

// Snapshot returns a copy of the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Load replaces the cache contents with snap, keeping its timestamps so
// restored data ages as if it had never left memory.
func (c *Cache) Load(snap Snapshot) {
	entries := make(map[slot][]Entry)
	fetchedAt := make(map[slot]time.Time)

	put := func(s slot, e []Entry) {
		if e == nil {
			return
		}
		entries[s] = e
		stamp, ok := snap.FetchedAt[s.String()]
		if !ok {
			stamp = snap.LoadedAt
		}
		fetchedAt[s] = stamp
	}
	put(departmentsSlot, snap.Departments)
	put(documentTypesSlot, snap.DocumentTypes)
	for id, cities := range snap.Cities {
		put(citiesSlot(id), cities)
	}

	c.mu.Lock()
	c.entries = entries
	c.fetchedAt = fetchedAt
	c.loadedAt = snap.LoadedAt
	c.mu.Unlock()
}

// Restore warms the cache from the configured snapshot store. It reports
// whether a snapshot was found.
func (c *Cache) Restore(ctx context.Context) (bool, error) {
	if c.snapshots == nil {
		return false, nil
	}
	snap, ok, err := c.snapshots.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("restore catalog snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	c.Load(snap)
	c.log.InfoWithContext(ctx, "Catalog Snapshot Restored", map[string]interface{}{
		"loaded_at": snap.LoadedAt,
		"cities":    len(snap.Cities),
	})
	return true, nil
}

// RedisSnapshotStore keeps snapshots in Redis under a per-backend key.
type RedisSnapshotStore struct {
	cache cache.Service
	key   string
}

// NewRedisSnapshotStore scopes snapshots by namespace, usually the backend host.
func NewRedisSnapshotStore(svc cache.Service, namespace string) *RedisSnapshotStore {
	return &RedisSnapshotStore{cache: svc, key: constants.BuildCatalogSnapshotKey(namespace)}
}

func (r *RedisSnapshotStore) Save(ctx context.Context, s Snapshot) error {
	return r.cache.Set(ctx, r.key, s, constants.TTL_CATALOG_SNAPSHOT)
}

func (r *RedisSnapshotStore) Load(ctx context.Context) (Snapshot, bool, error) {
	var s Snapshot
	err := r.cache.Get(ctx, r.key, &s)
	if errors.Is(err, cache.ErrCacheMiss) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}
