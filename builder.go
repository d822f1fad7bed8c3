package accesskit

import (
	"errors"
	"time"

	"github.com/clywell/accesskit/cache"
	internalaudit "github.com/clywell/accesskit/internal/audit"
	"github.com/clywell/accesskit/permission"
	"github.com/clywell/accesskit/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder assembles a [Provider]. Configure it during initialization and
// call Build exactly once; construction is allocation-only, no I/O happens
// until [Provider.Load].
type Builder struct {
	config Config

	permSource PermissionSource
	flagSource FlagSource

	permissions []string
	roles       map[string][]string

	cache     *cache.Cache
	store     storage.Adapter
	auditSink AuditSink
	logger    *zap.Logger
	onError   func(error)

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithPermissionSource sets the required subject/permission fetcher.
func (b *Builder) WithPermissionSource(src PermissionSource) *Builder {
	b.permSource = src
	return b
}

// WithFlagSource sets the optional feature-flag fetcher.
func (b *Builder) WithFlagSource(src FlagSource) *Builder {
	b.flagSource = src
	return b
}

// WithKnownPermissions registers the permission identifiers the provider
// will accept. When set, roles referencing unknown permissions fail Build.
func (b *Builder) WithKnownPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles sets the role → permission-names table the provider uses to
// expand a subject's roles into effective permissions.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithCache injects an explicit cache instance. When caching is enabled and
// no instance is injected, the process-wide [cache.Default] is used.
func (b *Builder) WithCache(c *cache.Cache) *Builder {
	b.cache = c
	return b
}

// WithStorage sets the storage adapter used for state write-through.
func (b *Builder) WithStorage(store storage.Adapter) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets the sink receiving decision audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for debug output. Defaults to a no-op.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithOnError sets the callback invoked with every fetch error.
func (b *Builder) WithOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

// WithCacheTimeout overrides the cache entry TTL.
func (b *Builder) WithCacheTimeout(ttl time.Duration) *Builder {
	b.config.Cache.TTL = ttl
	return b
}

// WithCacheEnabled toggles the read-through cache.
func (b *Builder) WithCacheEnabled(enabled bool) *Builder {
	b.config.Cache.Enabled = enabled
	return b
}

// WithDebugMode toggles verbose decision and fetch logging.
func (b *Builder) WithDebugMode(enabled bool) *Builder {
	b.config.Debug.Enabled = enabled
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Check latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready [Provider].
func (b *Builder) Build() (*Provider, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.permSource == nil {
		return nil, ErrPermissionSourceRequired
	}

	if (cfg.Fetch.HydrateFromStorage || cfg.Fetch.PersistToStorage) && b.store == nil {
		return nil, errors.New("storage write-through requires a storage adapter")
	}

	// -------- PERMISSION REGISTRY --------
	var registry *permission.Registry
	if len(b.permissions) > 0 {
		registry = permission.NewRegistry()
		for _, p := range b.permissions {
			if err := registry.Register(p); err != nil {
				return nil, err
			}
		}
		registry.Freeze()
	}

	// -------- ROLE MANAGER --------
	roleManager := permission.NewRoleManager(registry)
	for roleName, permList := range b.roles {
		if err := roleManager.RegisterRole(roleName, permList); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	// -------- CACHE --------
	var resultCache *cache.Cache
	if cfg.Cache.Enabled {
		resultCache = b.cache
		if resultCache == nil {
			resultCache = cache.Default()
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := &Provider{
		config:     cfg,
		id:         uuid.NewString(),
		registry:   registry,
		roles:      roleManager,
		permSource: b.permSource,
		flagSource: b.flagSource,
		cache:      resultCache,
		store:      b.store,
		logger:     logger,
		onError:    b.onError,
		metrics:    NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	provider.state.SubjectID = cfg.Cache.AnonymousSubject
	if provider.state.SubjectID == "" {
		provider.state.SubjectID = defaultConfig().Cache.AnonymousSubject
	}

	b.built = true

	return provider, nil
}
