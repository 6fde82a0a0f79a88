package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc fetches a fresh result set from the external recipe source.
type FetchFunc func(ctx context.Context) (*common.RecipeResultSet, error)

// Manager is the shared query cache: filter query + ingredient set in,
// recipe result set out. Entries are immutable once written and expire a
// fixed TTL after the fetch; invalidation removes entries, never edits
// them. Keys are shared across users: the key already encodes every
// diet/cuisine/allergen/ingredient constraint that could make two users'
// results differ.
type Manager struct {
	cfg *config.CacheConfig

	mu           sync.RWMutex
	store        map[string]entry
	byIngredient map[string]map[string]struct{} // ingredient name -> keys referencing it

	group singleflight.Group
	stats cacheStats
	stop  chan struct{}

	// Injectable clock for freshness tests.
	now func() time.Time
}

// entry is one immutable cached result set.
type entry struct {
	value       common.RecipeResultSet
	ingredients []string
	cachedAt    time.Time
	expiresAt   time.Time
}

type cacheStats struct {
	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	staleServe atomic.Int64
	fetches    atomic.Int64
}

// NewManager creates a query cache manager. With caching disabled the
// manager still exists but every lookup goes straight to the fetch.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		cfg:          &cfg.Cache,
		store:        make(map[string]entry),
		byIngredient: make(map[string]map[string]struct{}),
		stop:         make(chan struct{}),
		now:          time.Now,
	}

	if cfg.Cache.Enabled {
		go m.startCleanup()
		common.LogInfo("query cache initialized",
			zap.Int("max_size", cfg.Cache.MaxSize),
			zap.Duration("ttl", cfg.Cache.TTL),
			zap.Duration("cleanup_interval", cfg.Cache.CleanupInterval),
		)
	} else {
		common.LogInfo("query cache disabled")
	}

	return m
}

// Key derives the stable cache key from the rendered filter query and the
// pantry ingredient names. Names are lower-cased, deduplicated and sorted
// so logically equal pantries hash identically.
func Key(filterQuery string, ingredients []string) string {
	names := normalizeIngredients(ingredients)
	h := sha256.New()
	h.Write([]byte(filterQuery))
	h.Write([]byte{'\n'})
	h.Write([]byte(strings.Join(names, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeIngredients(ingredients []string) []string {
	seen := make(map[string]struct{}, len(ingredients))
	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		name := strings.ToLower(strings.TrimSpace(ing))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOrFetch returns the cached result for the query, fetching through
// fetch on a miss. At most one fetch per key is in flight system-wide;
// concurrent requesters await the shared outcome. A caller abandoning its
// wait (context cancellation) does not cancel the fetch for the others;
// the fetch completes and populates the cache for later callers. When the
// fetch fails and a just-expired entry exists for the key, that entry is
// served as a degraded result with stale=true.
func (m *Manager) GetOrFetch(ctx context.Context, filterQuery string, ingredients []string, fetch FetchFunc) (*common.RecipeResultSet, bool, error) {
	if !m.cfg.Enabled {
		res, err := fetch(ctx)
		return res, false, err
	}

	names := normalizeIngredients(ingredients)
	key := Key(filterQuery, names)

	if value, ok := m.lookup(key); ok {
		common.LogCacheHit("query", key)
		return value, false, nil
	}
	common.LogCacheMiss("query", key)

	// The stale candidate is captured before the flight: if the fetch
	// fails it is the degraded fallback.
	staleCandidate := m.evictExpired(key)

	ch := m.group.DoChan(key, func() (interface{}, error) {
		// Another waiter may have populated the entry between the lookup
		// and joining the flight.
		if value, ok := m.lookup(key); ok {
			return value, nil
		}

		// Detached context: the flight outlives any single caller. The
		// fetch timeout is the only bound.
		fetchCtx, cancel := context.WithTimeout(context.Background(), m.cfg.FetchTimeout)
		defer cancel()

		m.countFetch()
		res, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		m.write(key, names, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if staleCandidate != nil {
				m.countStaleServe()
				common.LogWarn("serving stale cache entry after fetch failure",
					zap.String("key", key),
					zap.Error(res.Err),
				)
				return staleCandidate, true, nil
			}
			return nil, false, res.Err
		}
		return res.Val.(*common.RecipeResultSet), false, nil
	}
}

// lookup returns a copy of a fresh entry's value.
func (m *Manager) lookup(key string) (*common.RecipeResultSet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.store[key]
	if !ok || !m.now().Before(e.expiresAt) {
		if !ok {
			m.stats.misses.Add(1)
		}
		return nil, false
	}
	m.stats.hits.Add(1)
	value := e.value
	return &value, true
}

// evictExpired removes an expired entry for the key and returns its value
// as the stale-serve candidate.
func (m *Manager) evictExpired(key string) *common.RecipeResultSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[key]
	if !ok {
		return nil
	}
	if m.now().Before(e.expiresAt) {
		// Re-fetched and repopulated by another flight in the meantime.
		return nil
	}
	m.removeLocked(key, e)
	m.stats.evictions.Add(1)
	value := e.value
	return &value
}

// write stores an immutable entry and indexes it by ingredient name for
// conservative invalidation.
func (m *Manager) write(key string, ingredients []string, res *common.RecipeResultSet) {
	now := m.now()
	res.CachedAt = now
	res.ExpiresAt = now.Add(m.cfg.TTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.store) >= m.cfg.MaxSize {
		evicted := m.cleanupLocked()
		if len(m.store) >= m.cfg.MaxSize {
			m.evictOldestLocked()
		}
		common.LogInfo("cache size limit reached",
			zap.Int("expired_evicted", evicted),
			zap.Int("size", len(m.store)),
		)
	}

	m.store[key] = entry{
		value:       *res,
		ingredients: ingredients,
		cachedAt:    now,
		expiresAt:   res.ExpiresAt,
	}
	for _, name := range ingredients {
		keys, ok := m.byIngredient[name]
		if !ok {
			keys = make(map[string]struct{})
			m.byIngredient[name] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate removes every entry whose ingredient set contains the given
// ingredient. Called synchronously with each pantry mutation: stale
// "ingredients you have" results must never outlive a known pantry
// change. Conservative: may over-evict, never under-evicts.
func (m *Manager) Invalidate(ingredient string) int {
	if !m.cfg.Enabled {
		return 0
	}
	name := strings.ToLower(strings.TrimSpace(ingredient))

	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.byIngredient[name]
	if !ok {
		return 0
	}
	count := 0
	for key := range keys {
		if e, ok := m.store[key]; ok {
			m.removeLocked(key, e)
			m.stats.evictions.Add(1)
			count++
		}
	}
	delete(m.byIngredient, name)

	if count > 0 {
		common.LogInfo("cache invalidated for ingredient",
			zap.String("ingredient", name),
			zap.Int("evicted", count),
		)
	}
	return count
}

// removeLocked deletes an entry and its reverse-index references.
func (m *Manager) removeLocked(key string, e entry) {
	delete(m.store, key)
	for _, name := range e.ingredients {
		if keys, ok := m.byIngredient[name]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.byIngredient, name)
			}
		}
	}
}

func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			count := m.cleanupLocked()
			m.mu.Unlock()
			if count > 0 {
				common.LogInfo("cleaned up expired cache entries",
					zap.Int("count", count),
				)
			}
		}
	}
}

// cleanupLocked sweeps expired entries. Caller holds the write lock.
func (m *Manager) cleanupLocked() int {
	now := m.now()
	count := 0
	for key, e := range m.store {
		if !now.Before(e.expiresAt) {
			m.removeLocked(key, e)
			m.stats.evictions.Add(1)
			count++
		}
	}
	return count
}

// evictOldestLocked drops the entry closest to expiry to make room.
func (m *Manager) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range m.store {
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey = key
			oldest = e.expiresAt
		}
	}
	if oldestKey != "" {
		m.removeLocked(oldestKey, m.store[oldestKey])
		m.stats.evictions.Add(1)
	}
}

func (m *Manager) countFetch() {
	m.stats.fetches.Add(1)
}

func (m *Manager) countStaleServe() {
	m.stats.staleServe.Add(1)
}

// Stats returns cache statistics for the health endpoint.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := m.stats.hits.Load()
	misses := m.stats.misses.Load()
	hitRatio := 0.0
	if hits+misses > 0 {
		hitRatio = float64(hits) / float64(hits+misses)
	}
	return map[string]interface{}{
		"enabled":     m.cfg.Enabled,
		"size":        len(m.store),
		"max_size":    m.cfg.MaxSize,
		"hits":        hits,
		"misses":      misses,
		"evictions":   m.stats.evictions.Load(),
		"stale_serve": m.stats.staleServe.Load(),
		"fetches":     m.stats.fetches.Load(),
		"hit_ratio":   hitRatio,
	}
}

// Close stops the cleanup goroutine and drops all entries.
func (m *Manager) Close() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]entry)
	m.byIngredient = make(map[string]map[string]struct{})

	common.LogInfo("query cache closed",
		zap.Int64("hits", m.stats.hits.Load()),
		zap.Int64("misses", m.stats.misses.Load()),
		zap.Int64("evictions", m.stats.evictions.Load()),
	)
	return nil
}
