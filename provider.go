package accesskit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/clywell/accesskit/cache"
	internalaudit "github.com/clywell/accesskit/internal/audit"
	"github.com/clywell/accesskit/permission"
	"github.com/clywell/accesskit/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

/*
====================================
CACHE SCOPES
====================================
*/

const (
	userAccessCacheScope = "accesskit:user-access"
	flagsCacheScope      = "accesskit:feature-flags"
	decisionCacheScope   = "accesskit:decision"
)

const stateStorageKeySuffix = ":state"

// audit event types emitted by the provider
const (
	auditEventCheck        = "access.check"
	auditEventStateLoaded  = "state.loaded"
	auditEventStateCleared = "state.cleared"
)

type loadPart uint8

const (
	loadPermissions loadPart = 1 << iota
	loadFlags

	loadAll = loadPermissions | loadFlags
)

/*
====================================
PROVIDER
====================================
*/

// Provider holds the fetched subject state and answers access checks against
// it. Build one with [Builder]; a Provider is safe for concurrent use.
//
// While a load is in flight, checks report loading and deny.
type Provider struct {
	config Config
	id     string

	registry   *permission.Registry
	roles      *permission.RoleManager
	permSource PermissionSource
	flagSource FlagSource

	cache   *cache.Cache
	store   storage.Adapter
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger
	onError func(error)

	mu    sync.RWMutex
	state State
	// epoch is folded into decision cache keys; bumping it on every state
	// transition strands stale cached decisions for lazy expiry instead of
	// sweeping them out.
	epoch uint64
	// gen identifies the newest load; completions carrying an older gen are
	// discarded so a refresh always supersedes the load it interrupted.
	gen      uint64
	hydrated bool
}

// ID returns the provider's unique instance identifier.
func (p *Provider) ID() string {
	return p.id
}

/*
====================================
LOADING
====================================
*/

// Load fetches subject access and feature flags concurrently and replaces
// the provider's state with the result. Either source may fail without
// affecting the other; a failed side is recorded in the state's error field
// and contributes no grants, so checks degrade to deny.
//
// A Load raced by a newer Load, Refresh, or Clear is discarded on
// completion.
func (p *Provider) Load(ctx context.Context) error {
	return p.load(ctx, loadAll)
}

// Refresh drops the cached fetch results for the current subject and
// re-runs a full load.
func (p *Provider) Refresh(ctx context.Context) error {
	p.invalidateFetchCache(ctx, loadAll)
	p.metrics.Inc(MetricRefresh)
	return p.load(ctx, loadAll)
}

// RefreshPermissions re-fetches only subject access, leaving flags as is.
func (p *Provider) RefreshPermissions(ctx context.Context) error {
	p.invalidateFetchCache(ctx, loadPermissions)
	p.metrics.Inc(MetricRefresh)
	return p.load(ctx, loadPermissions)
}

// RefreshFlags re-fetches only feature flags. Returns [ErrNoFlagSource]
// when the provider was built without one.
func (p *Provider) RefreshFlags(ctx context.Context) error {
	if p.flagSource == nil {
		return ErrNoFlagSource
	}
	p.invalidateFetchCache(ctx, loadFlags)
	p.metrics.Inc(MetricRefresh)
	return p.load(ctx, loadFlags)
}

func (p *Provider) load(ctx context.Context, parts loadPart) error {
	if p == nil {
		return ErrProviderNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.flagSource == nil {
		parts &^= loadFlags
	}

	gen := p.beginLoad(parts)

	p.maybeHydrate(ctx)

	var (
		access    UserAccess
		accessErr error
		flags     []FeatureFlag
		flagsErr  error
	)

	// fetch errors are per-source state, not group failures; every goroutine
	// returns nil so one failing source never cancels the other
	g, gctx := errgroup.WithContext(ctx)
	if parts&loadPermissions != 0 {
		g.Go(func() error {
			access, accessErr = p.fetchUserAccess(gctx)
			return nil
		})
	}
	if parts&loadFlags != 0 {
		g.Go(func() error {
			flags, flagsErr = p.fetchFlags(gctx)
			return nil
		})
	}
	_ = g.Wait()

	applied := p.applyLoad(gen, parts, access, accessErr, flags, flagsErr)
	if !applied {
		if p.config.Debug.Enabled {
			p.logger.Debug("superseded load discarded",
				zap.String("provider_id", p.id),
				zap.Uint64("gen", gen),
			)
		}
		return nil
	}

	if p.config.Fetch.PersistToStorage {
		p.persistState(ctx)
	}

	p.emitAudit(ctx, internalaudit.Event{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		EventType: auditEventStateLoaded,
		SubjectID: p.State().SubjectID,
		Allowed:   accessErr == nil,
		Error:     errString(firstErr(accessErr, flagsErr)),
	})

	if accessErr != nil || flagsErr != nil {
		err := errors.Join(accessErr, flagsErr)
		p.reportError(err)
		return err
	}
	return nil
}

// beginLoad marks the requested parts loading and returns the new load
// generation.
func (p *Provider) beginLoad(parts loadPart) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	if parts&loadPermissions != 0 {
		p.state.PermissionsLoading = true
	}
	if parts&loadFlags != 0 {
		p.state.FlagsLoading = true
	}
	return p.gen
}

// applyLoad installs fetch results, unless a newer load started meanwhile.
func (p *Provider) applyLoad(gen uint64, parts loadPart, access UserAccess, accessErr error, flags []FeatureFlag, flagsErr error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return false
	}

	if parts&loadPermissions != 0 {
		p.state.PermissionsLoading = false
		p.state.PermissionsErr = accessErr
		if accessErr == nil {
			subject := access.UserID
			if subject == "" {
				subject = p.config.Cache.AnonymousSubject
			}
			p.state.SubjectID = subject
			p.state.Roles = access.Roles
			p.state.Permissions = p.effectivePermissions(access)
		} else {
			// a failed fetch must never leave stale grants behind
			p.state.Permissions = nil
			p.state.Roles = nil
		}
	}

	if parts&loadFlags != 0 {
		p.state.FlagsLoading = false
		p.state.FlagsErr = flagsErr
		if flagsErr == nil {
			p.state.Flags = flags
		} else {
			p.state.Flags = nil
		}
	}

	p.state.LoadedAt = time.Now()
	p.epoch++
	return true
}

// effectivePermissions merges direct grants with role expansions, deduped,
// preserving first-seen order. Grants unknown to a frozen registry are
// dropped rather than rejected.
func (p *Provider) effectivePermissions(access UserAccess) []string {
	expanded := p.roles.Expand(access.Roles)

	merged := make([]string, 0, len(access.Permissions)+len(expanded))
	seen := make(map[string]struct{}, len(access.Permissions)+len(expanded))
	for _, list := range [][]string{access.Permissions, expanded} {
		for _, perm := range list {
			if perm == "" {
				continue
			}
			if p.registry != nil && !p.registry.Has(perm) {
				if p.config.Debug.Enabled {
					p.logger.Debug("dropping unknown permission",
						zap.String("provider_id", p.id),
						zap.String("permission", perm),
					)
				}
				continue
			}
			if _, dup := seen[perm]; dup {
				continue
			}
			seen[perm] = struct{}{}
			merged = append(merged, perm)
		}
	}
	return merged
}

/*
====================================
FETCHING
====================================
*/

func (p *Provider) fetchUserAccess(ctx context.Context) (UserAccess, error) {
	subject := p.fetchSubject(ctx)
	key := cache.DeriveKey(userAccessCacheScope, nil, subject)

	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if access, valid := v.(UserAccess); valid {
				p.metrics.Inc(MetricCacheHit)
				return access, nil
			}
		}
		p.metrics.Inc(MetricCacheMiss)
	}

	fctx, cancel := p.boundFetch(ctx)
	defer cancel()

	access, err := p.permSource.FetchUserAccess(fctx)
	if err != nil {
		p.metrics.Inc(MetricPermissionFetchFailure)
		return UserAccess{}, errors.Join(ErrPermissionsUnavailable, err)
	}
	p.metrics.Inc(MetricPermissionFetchSuccess)

	if p.cache != nil {
		p.cache.Set(key, access, p.config.Cache.TTL)
	}
	return access, nil
}

func (p *Provider) fetchFlags(ctx context.Context) ([]FeatureFlag, error) {
	subject := p.fetchSubject(ctx)
	key := cache.DeriveKey(flagsCacheScope, nil, subject)

	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if flags, valid := v.([]FeatureFlag); valid {
				p.metrics.Inc(MetricCacheHit)
				return flags, nil
			}
		}
		p.metrics.Inc(MetricCacheMiss)
	}

	fctx, cancel := p.boundFetch(ctx)
	defer cancel()

	flags, err := p.flagSource.FetchFeatureFlags(fctx)
	if err != nil {
		p.metrics.Inc(MetricFlagFetchFailure)
		return nil, errors.Join(ErrFlagsUnavailable, err)
	}
	p.metrics.Inc(MetricFlagFetchSuccess)

	if p.cache != nil {
		p.cache.Set(key, flags, p.config.Cache.TTL)
	}
	return flags, nil
}

func (p *Provider) boundFetch(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.Fetch.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.config.Fetch.Timeout)
}

// fetchSubject resolves the subject identifier keying cached fetch results:
// an explicit ctx override, else the anonymous sentinel. The loaded subject
// is deliberately not used; it only becomes known after the first fetch and
// would split the key space across loads.
func (p *Provider) fetchSubject(ctx context.Context) string {
	if id := SubjectIDFromContext(ctx); id != "" {
		return id
	}
	return p.config.Cache.AnonymousSubject
}

func (p *Provider) invalidateFetchCache(ctx context.Context, parts loadPart) {
	if p.cache == nil {
		return
	}
	subject := p.fetchSubject(ctx)
	if parts&loadPermissions != 0 {
		p.cache.Delete(cache.DeriveKey(userAccessCacheScope, nil, subject))
	}
	if parts&loadFlags != 0 {
		p.cache.Delete(cache.DeriveKey(flagsCacheScope, nil, subject))
	}
}

/*
====================================
STORAGE WRITE-THROUGH
====================================
*/

// persistedState is the JSON shape written through the storage adapter.
type persistedState struct {
	SubjectID   string        `json:"subjectId"`
	Permissions []string      `json:"permissions,omitempty"`
	Roles       []string      `json:"roles,omitempty"`
	Flags       []FeatureFlag `json:"flags,omitempty"`
	SavedAt     time.Time     `json:"savedAt"`
}

func (p *Provider) stateStorageKey() string {
	return p.config.Fetch.StorageKeyPrefix + stateStorageKeySuffix
}

// maybeHydrate restores the last persisted state once, before the first
// fetch completes, so consumers see the previous session's grants instead
// of an empty deny window. Hydrated state keeps the loading flags set; it
// is provisional and the in-flight fetch replaces it.
func (p *Provider) maybeHydrate(ctx context.Context) {
	if !p.config.Fetch.HydrateFromStorage || p.store == nil {
		return
	}

	p.mu.Lock()
	if p.hydrated {
		p.mu.Unlock()
		return
	}
	p.hydrated = true
	p.mu.Unlock()

	raw, ok := p.store.GetItem(ctx, p.stateStorageKey())
	if !ok {
		return
	}

	var saved persistedState
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		if p.config.Debug.Enabled {
			p.logger.Debug("discarding corrupt persisted state",
				zap.String("provider_id", p.id),
				zap.Error(err),
			)
		}
		return
	}

	p.mu.Lock()
	if saved.SubjectID != "" {
		p.state.SubjectID = saved.SubjectID
	}
	p.state.Permissions = saved.Permissions
	p.state.Roles = saved.Roles
	p.state.Flags = saved.Flags
	p.epoch++
	p.mu.Unlock()

	p.metrics.Inc(MetricStateHydrated)
}

func (p *Provider) persistState(ctx context.Context) {
	if p.store == nil {
		return
	}

	snapshot := p.State()
	data, err := json.Marshal(persistedState{
		SubjectID:   snapshot.SubjectID,
		Permissions: snapshot.Permissions,
		Roles:       snapshot.Roles,
		Flags:       snapshot.Flags,
		SavedAt:     time.Now(),
	})
	if err != nil {
		return
	}

	p.store.SetItem(ctx, p.stateStorageKey(), string(data))
	p.metrics.Inc(MetricStatePersisted)
}

/*
====================================
CLEARING
====================================
*/

// Clear resets the provider to the anonymous empty state, discards the
// subject's cached fetch results, and removes persisted state. In-flight
// loads are superseded and will be discarded on completion.
func (p *Provider) Clear(ctx context.Context) {
	if p == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.invalidateFetchCache(ctx, loadAll)

	p.mu.Lock()
	previousSubject := p.state.SubjectID
	p.state = State{SubjectID: p.config.Cache.AnonymousSubject}
	p.gen++
	p.epoch++
	p.hydrated = false
	p.mu.Unlock()

	if p.store != nil {
		p.store.RemoveItem(ctx, p.stateStorageKey())
	}

	p.metrics.Inc(MetricStateCleared)
	p.emitAudit(ctx, internalaudit.Event{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		EventType: auditEventStateCleared,
		SubjectID: previousSubject,
	})

	if p.config.Debug.Enabled {
		p.logger.Debug("state cleared",
			zap.String("provider_id", p.id),
			zap.String("previous_subject", previousSubject),
		)
	}
}

/*
====================================
CHECKING
====================================
*/

// Check evaluates one [AccessConfig] against the current state. While either
// source is still loading the result is unresolved and denies; unresolved
// results are never cached. Resolved decisions are cached per subject, per
// config shape, and per state epoch.
func (p *Provider) Check(ctx context.Context, cfg AccessConfig) CheckResult {
	if p == nil {
		return CheckResult{}
	}
	start := time.Now()

	p.mu.RLock()
	state := p.state
	epoch := p.epoch
	p.mu.RUnlock()

	result := CheckResult{
		PermissionsLoading: state.PermissionsLoading,
		FlagsLoading:       state.FlagsLoading,
	}

	subject := state.SubjectID
	if subject == "" {
		subject = p.config.Cache.AnonymousSubject
	}

	if result.Loading() {
		p.metrics.Inc(MetricCheckUnresolved)
		if p.config.Debug.Enabled {
			p.logger.Debug("check while loading",
				zap.String("provider_id", p.id),
				zap.String("subject_id", subject),
			)
		}
		return p.finishCheck(ctx, cfg, subject, state, result, start)
	}

	scope := decisionCacheScope + ":" + strconv.FormatUint(epoch, 10)
	key := cache.DeriveKey(scope, cfg, subject)

	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if decision, valid := v.(Decision); valid {
				p.metrics.Inc(MetricCacheHit)
				result.Decision = decision
				result.Cached = true
				return p.finishCheck(ctx, cfg, subject, state, result, start)
			}
		}
		p.metrics.Inc(MetricCacheMiss)
	}

	result.Decision = Evaluate(state.Flags, state.Permissions, cfg)

	if p.cache != nil {
		p.cache.Set(key, result.Decision, p.config.Cache.TTL)
	}

	return p.finishCheck(ctx, cfg, subject, state, result, start)
}

// finishCheck handles the shared tail of every check: metrics, audit,
// debug output, and the optional snapshot.
func (p *Provider) finishCheck(ctx context.Context, cfg AccessConfig, subject string, state State, result CheckResult, start time.Time) CheckResult {
	if !result.Loading() {
		if result.HasAccess {
			p.metrics.Inc(MetricCheckAllowed)
		} else {
			p.metrics.Inc(MetricCheckDenied)
		}
	}
	p.metrics.Observe(MetricCheckLatency, time.Since(start))

	p.emitAudit(ctx, internalaudit.Event{
		EventID:      uuid.NewString(),
		Timestamp:    time.Now(),
		EventType:    auditEventCheck,
		SubjectID:    subject,
		ConfigDigest: configDigest(cfg),
		Allowed:      result.HasAccess,
		Cached:       result.Cached,
	})

	if p.config.Debug.Enabled {
		p.logger.Debug("access check",
			zap.String("provider_id", p.id),
			zap.String("subject_id", subject),
			zap.Bool("allowed", result.HasAccess),
			zap.Bool("cached", result.Cached),
			zap.Bool("loading", result.Loading()),
		)
		if p.config.Debug.IncludeSnapshots {
			result.Debug = &DebugSnapshot{
				SubjectID:   subject,
				Permissions: state.Permissions,
				Roles:       state.Roles,
				Flags:       state.Flags,
				Config:      cfg,
				EvaluatedAt: time.Now(),
			}
		}
	}

	return result
}

// CheckAll evaluates a set of named configs in one pass and returns the
// results keyed by the caller's names.
func (p *Provider) CheckAll(ctx context.Context, configs map[string]AccessConfig) map[string]CheckResult {
	results := make(map[string]CheckResult, len(configs))
	for name, cfg := range configs {
		results[name] = p.Check(ctx, cfg)
	}
	return results
}

/*
====================================
INTROSPECTION
====================================
*/

// State returns a snapshot of the provider's current state. Slices are
// copied; mutating the snapshot never affects the provider.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := p.state
	snapshot.Permissions = append([]string(nil), p.state.Permissions...)
	snapshot.Roles = append([]string(nil), p.state.Roles...)
	snapshot.Flags = append([]FeatureFlag(nil), p.state.Flags...)
	return snapshot
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histogram buckets. Zero when metrics are disabled.
func (p *Provider) MetricsSnapshot() MetricsSnapshot {
	return p.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (p *Provider) AuditDropped() uint64 {
	return p.audit.Dropped()
}

// Close drains and stops the audit dispatcher. The provider remains usable
// for checks afterward; further audit events are dropped.
func (p *Provider) Close() {
	if p == nil {
		return
	}
	p.audit.Close()
}

/*
====================================
HELPERS
====================================
*/

func (p *Provider) emitAudit(ctx context.Context, event internalaudit.Event) {
	p.audit.Emit(ctx, event)
}

func (p *Provider) reportError(err error) {
	if err == nil || p.onError == nil {
		return
	}
	p.onError(err)
}

// configDigest produces a short stable fingerprint of a config for audit
// records, so identical checks correlate without logging the full shape.
func configDigest(cfg AccessConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
