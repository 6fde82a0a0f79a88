package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"
)

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         100,
			TTL:             24 * time.Hour,
			CleanupInterval: time.Hour,
			FetchTimeout:    2 * time.Second,
		},
	}
}

// newTestManager returns a manager with a controllable clock.
func newTestManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	m := NewManager(testConfig())
	t.Cleanup(func() { m.Close() })

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func fixedResult(id string) *common.RecipeResultSet {
	return &common.RecipeResultSet{
		Recipes: []common.RecipeCandidate{{ID: id, RequiredIngredients: []string{"egg"}, Rating: 4.5}},
	}
}

func TestKeyStability(t *testing.T) {
	t.Run("ingredient order does not matter", func(t *testing.T) {
		a := Key("f", []string{"egg", "flour", "milk"})
		b := Key("f", []string{"Milk", "flour", "egg"})
		if a != b {
			t.Errorf("keys differ for logically equal ingredient sets: %s vs %s", a, b)
		}
	})

	t.Run("duplicates do not matter", func(t *testing.T) {
		a := Key("f", []string{"egg", "egg"})
		b := Key("f", []string{"egg"})
		if a != b {
			t.Errorf("keys differ for duplicated ingredients: %s vs %s", a, b)
		}
	})

	t.Run("filter string matters", func(t *testing.T) {
		if Key("f1", []string{"egg"}) == Key("f2", []string{"egg"}) {
			t.Error("different filter strings must produce different keys")
		}
	})
}

func TestGetOrFetchCachesResult(t *testing.T) {
	m, clock := newTestManager(t)
	var fetches atomic.Int64

	fetch := func(ctx context.Context) (*common.RecipeResultSet, error) {
		fetches.Add(1)
		return fixedResult("r1"), nil
	}

	res, stale, err := m.GetOrFetch(context.Background(), "f", []string{"egg"}, fetch)
	if err != nil || stale {
		t.Fatalf("unexpected outcome: stale=%v err=%v", stale, err)
	}
	firstCachedAt := res.CachedAt

	// One second before expiry: still the same entry.
	*clock = clock.Add(24*time.Hour - time.Second)
	res, _, err = m.GetOrFetch(context.Background(), "f", []string{"egg"}, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.CachedAt.Equal(firstCachedAt) {
		t.Errorf("entry re-fetched before TTL: cachedAt %v vs %v", res.CachedAt, firstCachedAt)
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}

	// One second past expiry: a fresh fetch.
	*clock = clock.Add(2 * time.Second)
	res, _, err = m.GetOrFetch(context.Background(), "f", []string{"egg"}, fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CachedAt.Equal(firstCachedAt) {
		t.Error("expired entry served as fresh")
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
}

func TestSingleFlight(t *testing.T) {
	m, _ := newTestManager(t)

	var fetches atomic.Int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) (*common.RecipeResultSet, error) {
		fetches.Add(1)
		<-release
		return fixedResult("r1"), nil
	}

	const waiters = 10
	var wg sync.WaitGroup
	results := make([]*common.RecipeResultSet, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = m.GetOrFetch(context.Background(), "f", []string{"egg"}, fetch)
		}(i)
	}

	// Give every goroutine time to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("expected exactly 1 fetch for %d concurrent callers, got %d", waiters, got)
	}
	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d failed: %v", i, errs[i])
		}
		if len(results[i].Recipes) != 1 || results[i].Recipes[0].ID != "r1" {
			t.Errorf("waiter %d got unexpected result: %v", i, results[i])
		}
	}
}

func TestAbandonedWaiterDoesNotCancelFlight(t *testing.T) {
	m, _ := newTestManager(t)

	var fetches atomic.Int64
	release := make(chan struct{})
	fetch := func(ctx context.Context) (*common.RecipeResultSet, error) {
		fetches.Add(1)
		<-release
		return fixedResult("r1"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := m.GetOrFetch(ctx, "f", []string{"egg"}, fetch)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The flight keeps running and populates the cache for later callers.
	close(release)
	deadline := time.After(time.Second)
	for {
		res, _, err := m.GetOrFetch(context.Background(), "f", []string{"egg"}, func(ctx context.Context) (*common.RecipeResultSet, error) {
			fetches.Add(1)
			return fixedResult("r2"), nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Recipes[0].ID == "r1" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("abandoned flight never populated the cache")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestStaleServeOnFetchFailure(t *testing.T) {
	m, clock := newTestManager(t)

	ok := func(ctx context.Context) (*common.RecipeResultSet, error) {
		return fixedResult("r1"), nil
	}
	failing := func(ctx context.Context) (*common.RecipeResultSet, error) {
		return nil, errors.New("source down")
	}

	if _, _, err := m.GetOrFetch(context.Background(), "f", []string{"egg"}, ok); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	*clock = clock.Add(25 * time.Hour)

	res, stale, err := m.GetOrFetch(context.Background(), "f", []string{"egg"}, failing)
	if err != nil {
		t.Fatalf("expected stale serve, got error: %v", err)
	}
	if !stale {
		t.Error("expected stale=true for expired-but-served entry")
	}
	if res.Recipes[0].ID != "r1" {
		t.Errorf("expected the expired entry's value, got %v", res)
	}

	// The expired entry was evicted; a second failure has no fallback.
	if _, _, err := m.GetOrFetch(context.Background(), "f", []string{"egg"}, failing); err == nil {
		t.Error("expected error when no stale entry remains")
	}
}

func TestInvalidate(t *testing.T) {
	m, _ := newTestManager(t)
	var fetches atomic.Int64

	fetch := func(ctx context.Context) (*common.RecipeResultSet, error) {
		fetches.Add(1)
		return fixedResult("r1"), nil
	}

	seed := func(filters string, ingredients []string) {
		t.Helper()
		if _, _, err := m.GetOrFetch(context.Background(), filters, ingredients, fetch); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	seed("f1", []string{"egg", "flour"})
	seed("f2", []string{"egg", "milk"})
	seed("f3", []string{"milk"})

	if evicted := m.Invalidate("egg"); evicted != 2 {
		t.Fatalf("expected 2 entries evicted for egg, got %d", evicted)
	}

	before := fetches.Load()
	seed("f3", []string{"milk"}) // untouched entry still cached
	if fetches.Load() != before {
		t.Error("entry without egg was evicted")
	}
	seed("f1", []string{"egg", "flour"}) // evicted entry requires a fetch
	if fetches.Load() != before+1 {
		t.Error("evicted entry was still served from cache")
	}

	t.Run("unknown ingredient evicts nothing", func(t *testing.T) {
		if evicted := m.Invalidate("saffron"); evicted != 0 {
			t.Errorf("expected 0 evictions, got %d", evicted)
		}
	})
}

func TestDisabledCacheFetchesEveryTime(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = false
	m := NewManager(cfg)
	defer m.Close()

	var fetches atomic.Int64
	fetch := func(ctx context.Context) (*common.RecipeResultSet, error) {
		fetches.Add(1)
		return fixedResult("r1"), nil
	}

	for i := 0; i < 3; i++ {
		if _, _, err := m.GetOrFetch(context.Background(), "f", []string{"egg"}, fetch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := fetches.Load(); got != 3 {
		t.Errorf("expected 3 fetches with cache disabled, got %d", got)
	}
}
