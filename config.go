package accesskit

import (
	"errors"
	"time"
)

// Config holds all Provider tunables. Configure it before [Builder.Build];
// the Provider treats its copy as immutable afterward.
type Config struct {
	Cache   CacheConfig
	Fetch   FetchConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Debug   DebugConfig
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the read-through result cache.
type CacheConfig struct {
	// Enabled turns caching of fetched state and decisions on. Default true.
	Enabled bool
	// TTL is the lifetime of cached entries. Default 5 minutes.
	TTL time.Duration
	// AnonymousSubject is the sentinel used in cache keys when no subject
	// identifier is known yet.
	AnonymousSubject string
}

/*
====================================
FETCH CONFIG
====================================
*/

// FetchConfig controls source fetches and optional storage write-through.
type FetchConfig struct {
	// Timeout bounds each source fetch. Zero disables the bound.
	Timeout time.Duration
	// HydrateFromStorage restores the last persisted state from the
	// configured storage adapter before the first fetch completes.
	HydrateFromStorage bool
	// PersistToStorage writes fetched state to the configured storage
	// adapter, best effort.
	PersistToStorage bool
	// StorageKeyPrefix namespaces persisted keys. Default "ak".
	StorageKeyPrefix string
}

// AuditConfig controls the async decision-event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DebugConfig controls diagnostic output.
type DebugConfig struct {
	// Enabled turns on verbose decision and fetch logging through the
	// configured logger.
	Enabled bool
	// IncludeSnapshots attaches a [DebugSnapshot] to every CheckResult.
	IncludeSnapshots bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration a zero [Builder] starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Enabled:          true,
			TTL:              5 * time.Minute,
			AnonymousSubject: "anonymous",
		},
		Fetch: FetchConfig{
			Timeout:            10 * time.Second,
			HydrateFromStorage: false,
			PersistToStorage:   false,
			StorageKeyPrefix:   "ak",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Debug: DebugConfig{
			Enabled:          false,
			IncludeSnapshots: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// all fields are value types today; clone stays a copy point for when
	// reference fields are added
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, or nil. Build calls it;
// callers mutating a Config by hand can call it early.
func (c *Config) Validate() error {
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return errors.New("Cache TTL must be > 0 when cache is enabled")
		}
		if c.Cache.AnonymousSubject == "" {
			return errors.New("Cache AnonymousSubject must not be empty")
		}
	}

	if c.Fetch.Timeout < 0 {
		return errors.New("Fetch Timeout must be >= 0")
	}
	if (c.Fetch.HydrateFromStorage || c.Fetch.PersistToStorage) && c.Fetch.StorageKeyPrefix == "" {
		return errors.New("Fetch StorageKeyPrefix is required when storage write-through is enabled")
	}

	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	if c.Debug.IncludeSnapshots && !c.Debug.Enabled {
		return errors.New("Debug IncludeSnapshots requires Debug Enabled")
	}

	return nil
}
