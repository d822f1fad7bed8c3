// Package accesskit provides declarative, permission- and feature-flag-based
// access evaluation for applications that gate functionality per user: a pure
// boolean-combination evaluator, a TTL result cache, pluggable storage
// adapters, and a state-holding Provider built through [Builder].
//
// The package is designed for concurrent server workloads: Provider methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// accesskit is the public surface. It exposes [Provider], [Builder], [Config],
// [Evaluate], and value types (AccessConfig, Decision, FeatureFlag, etc.).
// Supporting machinery lives in subpackages: cache (TTL result cache),
// storage (adapter contract and implementations), permission (registry and
// role expansion), jwt (token-derived subjects), middleware (HTTP guards),
// and internal/audit (decision event dispatch).
//
// # What this package must NOT do
//
//   - Authenticate users. Callers supply an already-authenticated subject via
//     a [PermissionSource]; accesskit only decides what that subject may use.
//   - Propagate storage failures. Adapter errors degrade to cache misses and
//     no-ops so a broken backing store never takes the host application down.
//   - Retry failed fetches. Retry is the host's responsibility through the
//     exposed Refresh operations.
//
// # Evaluation contract
//
// Check is the hot path. With a warm cache it performs no fetches and no
// Redis or database round-trips. A config that requests no feature check and
// no permission check always denies; a requested check with nothing on the
// other side lets the requested side alone decide.
package accesskit
