package internaldefs

import (
	accesskit "github.com/clywell/accesskit"
)

// CounterDef binds a core metric ID to the stable exported name and help
// text every exporter renders for it.
type CounterDef struct {
	ID   accesskit.MetricID
	Name string
	Help string
}

// HistogramDef binds a core histogram ID to its exported name and help text.
type HistogramDef struct {
	ID   accesskit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter, in render order.
var CounterDefs = []CounterDef{
	{ID: accesskit.MetricCheckAllowed, Name: "accesskit_check_allowed_total", Help: "Access checks resolved as granted."},
	{ID: accesskit.MetricCheckDenied, Name: "accesskit_check_denied_total", Help: "Access checks resolved as denied."},
	{ID: accesskit.MetricCheckUnresolved, Name: "accesskit_check_unresolved_total", Help: "Access checks answered while sources were loading."},
	{ID: accesskit.MetricCacheHit, Name: "accesskit_cache_hit_total", Help: "Results served from the in-memory cache."},
	{ID: accesskit.MetricCacheMiss, Name: "accesskit_cache_miss_total", Help: "Cache lookups that missed."},
	{ID: accesskit.MetricPermissionFetchSuccess, Name: "accesskit_permission_fetch_success_total", Help: "Completed permission fetches."},
	{ID: accesskit.MetricPermissionFetchFailure, Name: "accesskit_permission_fetch_failure_total", Help: "Failed permission fetches."},
	{ID: accesskit.MetricFlagFetchSuccess, Name: "accesskit_flag_fetch_success_total", Help: "Completed feature-flag fetches."},
	{ID: accesskit.MetricFlagFetchFailure, Name: "accesskit_flag_fetch_failure_total", Help: "Failed feature-flag fetches."},
	{ID: accesskit.MetricStateHydrated, Name: "accesskit_state_hydrated_total", Help: "States restored from a storage adapter."},
	{ID: accesskit.MetricStatePersisted, Name: "accesskit_state_persisted_total", Help: "States written to a storage adapter."},
	{ID: accesskit.MetricRefresh, Name: "accesskit_refresh_total", Help: "Explicit refresh operations."},
	{ID: accesskit.MetricStateCleared, Name: "accesskit_state_cleared_total", Help: "State clear operations."},
}

// HistogramDefs lists every exported histogram, in render order.
var HistogramDefs = []HistogramDef{
	{ID: accesskit.MetricCheckLatency, Name: "accesskit_check_latency_seconds", Help: "Check latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// core's microsecond buckets.
var HistogramBounds = []string{
	"0.00001",
	"0.00005",
	"0.0001",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"+Inf",
}

// HistogramBoundSuffix are name-safe renderings of [HistogramBounds] for
// backends that cannot carry a bucket label.
var HistogramBoundSuffix = []string{
	"0_00001",
	"0_00005",
	"0_0001",
	"0_0005",
	"0_001",
	"0_005",
	"0_025",
	"inf",
}

// NormalizeBuckets fixes a raw snapshot slice to the canonical bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative counts
// Prometheus-style histograms expose.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
