// Package cache provides the TTL result cache behind accesskit's read-through
// layers: a mapping from derived keys to values with absolute expiry, plus
// deterministic key derivation for access-check configurations.
//
// # Expiry model
//
// Expiry is lazy. [Cache.Get] evicts an expired entry for the key it reads;
// nothing sweeps the map proactively, and [Cache.Size] counts expired entries
// until they are read. A ttl <= 0 stores an already-expired entry.
//
// # Architecture boundaries
//
// This package is a pure in-memory structure with no I/O.
//
// # What this package must NOT do
//
//   - Access the network or any storage adapter.
//   - Import accesskit or any sibling package.
//   - Run background goroutines.
package cache
