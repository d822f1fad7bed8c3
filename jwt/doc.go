// Package jwt derives accesskit subjects from signed tokens. A [Manager]
// issues and verifies tokens whose claims carry the subject identifier plus
// permission and role grants, so hosts that already mint JWTs can feed the
// Provider without a second backend call.
//
// # Architecture boundaries
//
// This package owns token signing and verification only. Turning claims into
// a permission source is root-package glue (accesskit.TokenPermissionSource).
//
// # What this package must NOT do
//
//   - Decide access. Claims are inputs to evaluation, not decisions.
//   - Import accesskit or any sibling package.
//   - Accept unsigned or alg-confused tokens: the verifier pins the
//     configured algorithm.
package jwt
