// Package permission provides the permission-name registry and role
// composition helpers used by accesskit providers.
//
// # Model
//
// Permissions are opaque string identifiers; equality is exact string match.
// A [Registry] pins the set of identifiers known at build time, and a
// [RoleManager] maps role names to permission lists and expands a subject's
// roles into the permissions they grant. Both are registered during
// initialization, frozen, and read-only thereafter.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import accesskit or any sibling package.
//   - Mutate role or registry contents after Freeze.
package permission
