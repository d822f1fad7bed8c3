package accesskit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clywell/accesskit/cache"
	"github.com/clywell/accesskit/storage"
)

// countingSource wraps a static result and counts fetches.
type countingSource struct {
	access  UserAccess
	err     error
	fetches atomic.Int64
	block   chan struct{} // when set, fetches wait here
}

func (s *countingSource) FetchUserAccess(ctx context.Context) (UserAccess, error) {
	s.fetches.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return UserAccess{}, ctx.Err()
		}
	}
	return s.access, s.err
}

func buildProvider(t *testing.T, mutate func(*Builder)) *Provider {
	t.Helper()

	b := New().
		WithCache(cache.New()).
		WithPermissionSource(StaticPermissionSource(UserAccess{
			UserID:      "user-1",
			Permissions: []string{"reports.view"},
			Roles:       []string{"member"},
		})).
		WithFlagSource(StaticFlagSource([]FeatureFlag{
			{ID: "beta-reports", Enabled: true},
			{ID: "admin-ui", Enabled: false},
		})).
		WithRoles(map[string][]string{
			"member": {"profile.view"},
		})
	if mutate != nil {
		mutate(b)
	}

	p, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestLoadAndCheck(t *testing.T) {
	ctx := context.Background()
	p := buildProvider(t, nil)

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	state := p.State()
	if state.SubjectID != "user-1" {
		t.Fatalf("expected subject user-1, got %q", state.SubjectID)
	}
	if !HasPermission(state.Permissions, "reports.view") {
		t.Fatal("direct grant missing")
	}
	if !HasPermission(state.Permissions, "profile.view") {
		t.Fatal("role expansion missing")
	}
	if state.PermissionsLoading || state.FlagsLoading {
		t.Fatal("loading flags must clear after load")
	}

	if r := p.Check(ctx, AccessConfig{Permission: "reports.view"}); !r.HasAccess {
		t.Fatal("held permission must grant")
	}
	if r := p.Check(ctx, AccessConfig{Permission: "admin.panel"}); r.HasAccess {
		t.Fatal("unheld permission must deny")
	}
	if r := p.Check(ctx, AccessConfig{Feature: "beta-reports"}); !r.HasAccess {
		t.Fatal("enabled flag must grant")
	}
	if r := p.Check(ctx, AccessConfig{Feature: "admin-ui"}); r.HasAccess {
		t.Fatal("disabled flag must deny")
	}
	if r := p.Check(ctx, AccessConfig{}); r.HasAccess {
		t.Fatal("empty config must deny")
	}
}

func TestCheckBeforeLoadDenies(t *testing.T) {
	p := buildProvider(t, nil)

	r := p.Check(context.Background(), AccessConfig{Permission: "reports.view"})
	if r.HasAccess {
		t.Fatal("nothing fetched yet, must deny")
	}
	if r.Loading() {
		t.Fatal("no load in flight, must not report loading")
	}
}

func TestCheckDuringLoadReportsLoading(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{
		access: UserAccess{UserID: "user-1", Permissions: []string{"p"}},
		block:  make(chan struct{}),
	}
	p := buildProvider(t, func(b *Builder) {
		b.WithPermissionSource(src).WithFlagSource(nil)
	})

	done := make(chan error, 1)
	go func() { done <- p.Load(ctx) }()

	// wait until the fetch is actually in flight
	deadline := time.After(2 * time.Second)
	for src.fetches.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	r := p.Check(ctx, AccessConfig{Permission: "p"})
	if !r.PermissionsLoading {
		t.Fatal("check during load must report loading")
	}
	if r.HasAccess {
		t.Fatal("unresolved check must deny")
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}

	if r := p.Check(ctx, AccessConfig{Permission: "p"}); !r.HasAccess {
		t.Fatal("resolved check must grant")
	}
}

func TestLoadFailureDegradesToDeny(t *testing.T) {
	ctx := context.Background()
	fetchErr := errors.New("backend down")

	var observed error
	p := buildProvider(t, func(b *Builder) {
		b.WithPermissionSource(&countingSource{err: fetchErr})
		b.WithOnError(func(err error) { observed = err })
	})

	err := p.Load(ctx)
	if err == nil {
		t.Fatal("expected a load error")
	}
	if !errors.Is(err, ErrPermissionsUnavailable) {
		t.Fatalf("expected ErrPermissionsUnavailable, got %v", err)
	}
	if !errors.Is(err, fetchErr) {
		t.Fatalf("cause must be preserved, got %v", err)
	}
	if observed == nil {
		t.Fatal("onError callback must observe the failure")
	}

	state := p.State()
	if state.PermissionsErr == nil {
		t.Fatal("state must record the permission error")
	}
	if state.FlagsErr != nil {
		t.Fatalf("flag side must be unaffected: %v", state.FlagsErr)
	}
	if len(state.Permissions) != 0 {
		t.Fatal("a failed fetch must leave no grants")
	}

	// flags loaded fine; feature checks still work
	if r := p.Check(ctx, AccessConfig{Feature: "beta-reports"}); !r.HasAccess {
		t.Fatal("healthy flag side must still grant")
	}
	if r := p.Check(ctx, AccessConfig{Permission: "reports.view"}); r.HasAccess {
		t.Fatal("failed permission side must deny")
	}
}

func TestDecisionCaching(t *testing.T) {
	ctx := context.Background()
	p := buildProvider(t, func(b *Builder) {
		b.WithMetricsEnabled(true)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := AccessConfig{Permission: "reports.view"}

	first := p.Check(ctx, cfg)
	if first.Cached {
		t.Fatal("first check must evaluate")
	}
	second := p.Check(ctx, cfg)
	if !second.Cached {
		t.Fatal("second identical check must hit the cache")
	}
	if second.HasAccess != first.HasAccess {
		t.Fatal("cached decision must match the evaluated one")
	}

	// a structurally different config misses
	if r := p.Check(ctx, AccessConfig{Permission: "reports.view", RequireBoth: true}); r.Cached {
		t.Fatal("different config shape must not share a cache entry")
	}
}

func TestRefreshInvalidatesCachedDecisions(t *testing.T) {
	ctx := context.Background()

	grants := atomic.Value{}
	grants.Store([]string{"reports.view"})
	p := buildProvider(t, func(b *Builder) {
		b.WithPermissionSource(PermissionSourceFunc(func(context.Context) (UserAccess, error) {
			return UserAccess{UserID: "user-1", Permissions: grants.Load().([]string)}, nil
		}))
		b.WithFlagSource(nil)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := AccessConfig{Permission: "reports.view"}
	if r := p.Check(ctx, cfg); !r.HasAccess {
		t.Fatal("grant must be honored")
	}
	p.Check(ctx, cfg) // warm the decision cache

	grants.Store([]string{})
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	r := p.Check(ctx, cfg)
	if r.Cached {
		t.Fatal("refresh must strand previously cached decisions")
	}
	if r.HasAccess {
		t.Fatal("revoked grant must deny after refresh")
	}
}

func TestFetchReadThroughCache(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{access: UserAccess{UserID: "user-1", Permissions: []string{"p"}}}
	p := buildProvider(t, func(b *Builder) {
		b.WithPermissionSource(src).WithFlagSource(nil)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := p.Load(ctx); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := src.fetches.Load(); got != 1 {
		t.Fatalf("second load must be served from cache, got %d fetches", got)
	}

	// refresh bypasses the fetch cache
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := src.fetches.Load(); got != 2 {
		t.Fatalf("refresh must re-fetch, got %d fetches", got)
	}
}

func TestRefreshFlagsWithoutSource(t *testing.T) {
	p := buildProvider(t, func(b *Builder) {
		b.WithFlagSource(nil)
	})

	if err := p.RefreshFlags(context.Background()); !errors.Is(err, ErrNoFlagSource) {
		t.Fatalf("expected ErrNoFlagSource, got %v", err)
	}
}

func TestClearResetsState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("test")

	cfg := DefaultConfig()
	cfg.Fetch.PersistToStorage = true

	p := buildProvider(t, func(b *Builder) {
		b.WithConfig(cfg).WithStorage(store)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() == 0 {
		t.Fatal("load must persist state")
	}

	p.Clear(ctx)

	state := p.State()
	if state.SubjectID != "anonymous" {
		t.Fatalf("clear must reset to the anonymous subject, got %q", state.SubjectID)
	}
	if len(state.Permissions) != 0 || len(state.Flags) != 0 {
		t.Fatal("clear must drop all grants")
	}
	if store.Len() != 0 {
		t.Fatal("clear must remove persisted state")
	}

	if r := p.Check(ctx, AccessConfig{Permission: "reports.view"}); r.HasAccess {
		t.Fatal("cleared provider must deny")
	}
}

func TestHydrateFromStorage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("test")

	cfg := DefaultConfig()
	cfg.Fetch.PersistToStorage = true
	cfg.Fetch.HydrateFromStorage = true

	first := buildProvider(t, func(b *Builder) {
		b.WithConfig(cfg).WithStorage(store)
	})
	if err := first.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	// a second provider over the same store sees the persisted grants while
	// its own (blocked) fetch is still in flight
	src := &countingSource{
		access: UserAccess{UserID: "user-1", Permissions: []string{"p"}},
		block:  make(chan struct{}),
	}
	second := buildProvider(t, func(b *Builder) {
		b.WithConfig(cfg).WithStorage(store).WithCache(cache.New())
		b.WithPermissionSource(src).WithFlagSource(nil)
	})

	done := make(chan error, 1)
	go func() { done <- second.Load(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		state := second.State()
		if state.SubjectID == "user-1" && len(state.Permissions) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("hydrated state never appeared, state: %+v", state)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	r := second.Check(ctx, AccessConfig{Permission: "reports.view"})
	if !r.PermissionsLoading {
		t.Fatal("hydrated state is provisional, checks must still report loading")
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestCorruptPersistedStateIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("test")
	store.SetItem(ctx, "ak:state", "{not json")

	cfg := DefaultConfig()
	cfg.Fetch.HydrateFromStorage = true
	cfg.Fetch.PersistToStorage = true

	p := buildProvider(t, func(b *Builder) {
		b.WithConfig(cfg).WithStorage(store)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("corrupt persisted state must not fail the load: %v", err)
	}
	if p.State().SubjectID != "user-1" {
		t.Fatal("fetched state must win")
	}
}

func TestRefreshSupersedesInFlightLoad(t *testing.T) {
	ctx := context.Background()

	stale := &countingSource{
		access: UserAccess{UserID: "stale", Permissions: []string{"old"}},
		block:  make(chan struct{}),
	}
	p := buildProvider(t, func(b *Builder) {
		b.WithPermissionSource(stale).WithFlagSource(nil).WithCacheEnabled(false)
	})

	slow := make(chan error, 1)
	go func() { slow <- p.Load(ctx) }()

	deadline := time.After(2 * time.Second)
	for stale.fetches.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// swap the source and complete a newer load while the old one hangs
	p.permSource = StaticPermissionSource(UserAccess{UserID: "fresh", Permissions: []string{"new"}})
	if err := p.Load(ctx); err != nil {
		t.Fatalf("newer load: %v", err)
	}

	close(stale.block)
	if err := <-slow; err != nil {
		t.Fatalf("stale load: %v", err)
	}

	state := p.State()
	if state.SubjectID != "fresh" {
		t.Fatalf("stale completion must not overwrite newer state, got %q", state.SubjectID)
	}
	if !HasPermission(state.Permissions, "new") || HasPermission(state.Permissions, "old") {
		t.Fatalf("unexpected grants: %v", state.Permissions)
	}
}

func TestRegistryDropsUnknownGrants(t *testing.T) {
	ctx := context.Background()
	p := buildProvider(t, func(b *Builder) {
		b.WithKnownPermissions([]string{"reports.view", "profile.view"})
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if r := p.Check(ctx, AccessConfig{Permission: "reports.view"}); !r.HasAccess {
		t.Fatal("known grant must survive")
	}
}

func TestCheckAll(t *testing.T) {
	ctx := context.Background()
	p := buildProvider(t, nil)

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	results := p.CheckAll(ctx, map[string]AccessConfig{
		"reports": {Permission: "reports.view"},
		"admin":   {Permission: "admin.panel"},
		"beta":    {Feature: "beta-reports"},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results["reports"].HasAccess {
		t.Fatal("reports must grant")
	}
	if results["admin"].HasAccess {
		t.Fatal("admin must deny")
	}
	if !results["beta"].HasAccess {
		t.Fatal("beta must grant")
	}
}

func TestDebugSnapshots(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Debug.Enabled = true
	cfg.Debug.IncludeSnapshots = true

	p := buildProvider(t, func(b *Builder) {
		b.WithConfig(cfg)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	r := p.Check(ctx, AccessConfig{Permission: "reports.view"})
	if r.Debug == nil {
		t.Fatal("expected a debug snapshot")
	}
	if r.Debug.SubjectID != "user-1" {
		t.Fatalf("snapshot subject mismatch: %q", r.Debug.SubjectID)
	}
	if !HasPermission(r.Debug.Permissions, "reports.view") {
		t.Fatal("snapshot must carry the evaluated permissions")
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	ctx := context.Background()
	sink := NewChannelSink(16)

	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16

	p := buildProvider(t, func(b *Builder) {
		b.WithConfig(cfg).WithAuditSink(sink)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	p.Check(ctx, AccessConfig{Permission: "reports.view"})
	p.Close()

	var types []string
	for len(types) < 2 {
		select {
		case event := <-sink.Events():
			types = append(types, event.EventType)
			if event.EventID == "" {
				t.Fatal("events must carry an id")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, saw %v", types)
		}
	}

	if types[0] != "state.loaded" {
		t.Fatalf("expected state.loaded first, got %v", types)
	}
	if types[1] != "access.check" {
		t.Fatalf("expected access.check second, got %v", types)
	}
}

func TestMetricsRecordedOnChecks(t *testing.T) {
	ctx := context.Background()
	p := buildProvider(t, func(b *Builder) {
		b.WithMetricsEnabled(true)
	})

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	p.Check(ctx, AccessConfig{Permission: "reports.view"}) // allowed
	p.Check(ctx, AccessConfig{Permission: "admin.panel"})  // denied

	s := p.MetricsSnapshot()
	if s.Counters[MetricCheckAllowed] != 1 {
		t.Fatalf("expected 1 allowed, got %d", s.Counters[MetricCheckAllowed])
	}
	if s.Counters[MetricCheckDenied] != 1 {
		t.Fatalf("expected 1 denied, got %d", s.Counters[MetricCheckDenied])
	}
	if s.Counters[MetricPermissionFetchSuccess] != 1 {
		t.Fatalf("expected 1 fetch, got %d", s.Counters[MetricPermissionFetchSuccess])
	}
}

func TestLoadHonorsContextCancellation(t *testing.T) {
	src := &countingSource{
		access: UserAccess{UserID: "user-1"},
		block:  make(chan struct{}),
	}
	p := buildProvider(t, func(b *Builder) {
		b.WithPermissionSource(src).WithFlagSource(nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Load(ctx) }()

	deadline := time.After(2 * time.Second)
	for src.fetches.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("cancelled load must fail")
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled in the chain, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("load must return promptly on cancellation")
	}
}

func TestSubjectIDContext(t *testing.T) {
	ctx := WithSubjectID(context.Background(), "ctx-subject")
	if got := SubjectIDFromContext(ctx); got != "ctx-subject" {
		t.Fatalf("expected ctx-subject, got %q", got)
	}
	if got := SubjectIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
