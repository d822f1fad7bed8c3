// Package storage defines the silent-failure key-value adapter contract used
// by accesskit write-through and the shipped implementations: in-process
// memory (session-scoped), file (persistent-scoped), Redis, a gorm-backed
// structured store, an XOR obfuscation decorator, and an ordered multi-tier
// composite.
//
// # Failure policy
//
// No adapter operation returns an error. Backing-store failures degrade to
// "value absent" on reads and no-ops on writes, because the access-control
// feature must keep working when its storage does not. Failures are observable
// only through the optional [ErrorHook] passed at construction.
//
// # What this package must NOT do
//
//   - Surface backend errors or panics to callers.
//   - Interpret stored values. Everything is an opaque text blob.
//   - Import accesskit or any sibling package.
package storage
