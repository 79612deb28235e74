//go:build !integration

package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fitness-subscription-platform/internal/domain/model"
	"fitness-subscription-platform/internal/domain/ports/repository"
)

// fakeClient is an in-memory RedisClient with per-key TTL bookkeeping.
type fakeClient struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	counter map[string]int64

	failWith error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		data:    map[string]string{},
		ttls:    map[string]time.Duration{},
		counter: map[string]int64{},
	}
}

func (c *fakeClient) Ping(context.Context) error { return c.failWith }

func (c *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = fmt.Sprint(value)
	c.ttls[key] = expiration
	return nil
}

func (c *fakeClient) Get(_ context.Context, key string) (string, error) {
	if c.failWith != nil {
		return "", c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", ErrNil
}

func (c *fakeClient) Incr(_ context.Context, key string) (int64, error) {
	if c.failWith != nil {
		return 0, c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter[key]++
	return c.counter[key], nil
}

func (c *fakeClient) Expire(_ context.Context, key string, expiration time.Duration) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[key] = expiration
	return nil
}

func (c *fakeClient) Del(_ context.Context, keys ...string) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeClient) Close() error { return nil }

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("admits up to the limit", func(t *testing.T) {
		rl := NewRateLimiter(newFakeClient())
		for i := 0; i < 10; i++ {
			ok, err := rl.Allow(ctx, "k", 10, time.Minute)
			if err != nil {
				t.Fatalf("attempt %d: %v", i, err)
			}
			if !ok {
				t.Fatalf("attempt %d should be admitted", i)
			}
		}
		ok, _ := rl.Allow(ctx, "k", 10, time.Minute)
		if ok {
			t.Error("attempt over the limit must be denied")
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(newFakeClient())
		for i := 0; i < 3; i++ {
			rl.Allow(ctx, "a", 2, time.Minute)
		}
		ok, _ := rl.Allow(ctx, "b", 2, time.Minute)
		if !ok {
			t.Error("key b must not share key a's window")
		}
	})

	t.Run("window is set on the first hit only", func(t *testing.T) {
		cli := newFakeClient()
		rl := NewRateLimiter(cli)
		rl.Allow(ctx, "k", 5, time.Minute)
		if cli.ttls["k"] != time.Minute {
			t.Errorf("expected 1m window, got %v", cli.ttls["k"])
		}
		cli.ttls["k"] = 30 * time.Second // simulate time passing
		rl.Allow(ctx, "k", 5, time.Minute)
		if cli.ttls["k"] != 30*time.Second {
			t.Error("later hits must not reset the window")
		}
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		cli := newFakeClient()
		cli.failWith = errors.New("connection refused")
		if _, err := NewRateLimiter(cli).Allow(ctx, "k", 5, time.Minute); err == nil {
			t.Error("expected the backend error")
		}
	})
}

func TestEntitlementCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		c := NewEntitlementCache(newFakeClient(), 5*time.Minute, testLogger())
		if c.IsEntitled(ctx, "user-1") {
			t.Fatal("cold cache must miss")
		}
		c.MarkEntitled(ctx, "user-1", time.Now().Add(24*time.Hour))
		if !c.IsEntitled(ctx, "user-1") {
			t.Fatal("expected a hit after marking")
		}
		c.Invalidate(ctx, "user-1")
		if c.IsEntitled(ctx, "user-1") {
			t.Error("invalidate must evict")
		}
	})

	t.Run("ttl never outlives the subscription", func(t *testing.T) {
		cli := newFakeClient()
		c := NewEntitlementCache(cli, 5*time.Minute, testLogger())
		c.MarkEntitled(ctx, "user-1", time.Now().Add(90*time.Second))
		got := cli.ttls["entitlement:user-1"]
		if got > 90*time.Second {
			t.Errorf("ttl %v exceeds the remaining subscription window", got)
		}
		if got <= 0 {
			t.Errorf("expected a positive ttl, got %v", got)
		}
	})

	t.Run("expired subscription is never cached", func(t *testing.T) {
		cli := newFakeClient()
		c := NewEntitlementCache(cli, 5*time.Minute, testLogger())
		c.MarkEntitled(ctx, "user-1", time.Now().Add(-time.Minute))
		if _, ok := cli.data["entitlement:user-1"]; ok {
			t.Error("a lapsed end date must not produce a cache entry")
		}
	})

	t.Run("backend failure degrades to a miss", func(t *testing.T) {
		cli := newFakeClient()
		cli.failWith = errors.New("connection refused")
		c := NewEntitlementCache(cli, 5*time.Minute, testLogger())
		if c.IsEntitled(ctx, "user-1") {
			t.Error("a broken cache must answer not-entitled")
		}
		// Writes and invalidations must not panic either.
		c.MarkEntitled(ctx, "user-1", time.Now().Add(time.Hour))
		c.Invalidate(ctx, "user-1")
	})
}

// fakePlanRepo counts database hits so the tests can tell a cache hit from a
// pass-through.
type fakePlanRepo struct {
	plans []*model.Plan
	lists int
}

func (r *fakePlanRepo) Save(context.Context, repository.Tx, *model.Plan) error { return nil }

func (r *fakePlanRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Plan, error) {
	for _, p := range r.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakePlanRepo) List(_ context.Context, _ repository.Tx, activeOnly bool) ([]*model.Plan, error) {
	r.lists++
	var out []*model.Plan
	for _, p := range r.plans {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePlanRepo) Deactivate(context.Context, repository.Tx, string) error { return nil }

func TestCachedPlanRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	seed := func() *fakePlanRepo {
		return &fakePlanRepo{plans: []*model.Plan{
			{ID: "plan-1", Name: "Monthly", PriceMinor: 49900, Currency: "INR", DurationDays: 30, Active: true, CreatedAt: now, UpdatedAt: now},
			{ID: "plan-2", Name: "Legacy", PriceMinor: 29900, Currency: "INR", DurationDays: 30, Active: false, CreatedAt: now, UpdatedAt: now},
		}}
	}

	t.Run("second list is served from the cache", func(t *testing.T) {
		inner := seed()
		repo := NewCachedPlanRepo(inner, newFakeClient(), 10*time.Minute, testLogger())

		first, err := repo.List(ctx, repository.NoTX, true)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		second, err := repo.List(ctx, repository.NoTX, true)
		if err != nil {
			t.Fatalf("cached List: %v", err)
		}
		if inner.lists != 1 {
			t.Errorf("expected one database read, got %d", inner.lists)
		}
		if len(first) != 1 || len(second) != 1 || second[0].ID != "plan-1" {
			t.Errorf("cached result diverged: %+v vs %+v", first, second)
		}
	})

	t.Run("active and full lists are cached separately", func(t *testing.T) {
		inner := seed()
		repo := NewCachedPlanRepo(inner, newFakeClient(), 10*time.Minute, testLogger())

		if _, err := repo.List(ctx, repository.NoTX, true); err != nil {
			t.Fatalf("List(active): %v", err)
		}
		all, err := repo.List(ctx, repository.NoTX, false)
		if err != nil {
			t.Fatalf("List(all): %v", err)
		}
		if len(all) != 2 {
			t.Errorf("full list must not be served from the active-only entry, got %d plans", len(all))
		}
	})

	t.Run("writes invalidate both entries", func(t *testing.T) {
		inner := seed()
		cli := newFakeClient()
		repo := NewCachedPlanRepo(inner, cli, 10*time.Minute, testLogger())

		if _, err := repo.List(ctx, repository.NoTX, true); err != nil {
			t.Fatalf("List: %v", err)
		}
		if _, err := repo.List(ctx, repository.NoTX, false); err != nil {
			t.Fatalf("List: %v", err)
		}
		if err := repo.Save(ctx, repository.NoTX, &model.Plan{ID: "plan-3", Name: "Annual", PriceMinor: 499900, Currency: "INR", DurationDays: 365, Active: true, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if _, ok := cli.data["plans:list:active"]; ok {
			t.Error("save must evict the active list")
		}
		if _, ok := cli.data["plans:list:all"]; ok {
			t.Error("save must evict the full list")
		}
	})

	t.Run("backend failure falls through to the database", func(t *testing.T) {
		inner := seed()
		cli := newFakeClient()
		cli.failWith = errors.New("connection refused")
		repo := NewCachedPlanRepo(inner, cli, 10*time.Minute, testLogger())

		plans, err := repo.List(ctx, repository.NoTX, true)
		if err != nil {
			t.Fatalf("List with broken cache: %v", err)
		}
		if len(plans) != 1 {
			t.Errorf("expected the database answer, got %d plans", len(plans))
		}
	})
}
