// Package tokengate is a bearer-credential lifecycle engine: it issues,
// validates, rotates, and revokes access/refresh token pairs for its
// client population, backed entirely by a shared Redis
// deployment so any number of service instances observe the same session
// state with no in-process bookkeeping.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], sentinel errors, and value types; flow orchestration, the
// credential-store adapter, lifecycle bookkeeping, lockout counters, and
// audit dispatch all live under internal/ and are never exported.
//
// # What tokengate deliberately does not do
//
//   - Verify passwords. The caller supplies a [CredentialVerifier]; the
//     engine only learns "subject id" or "failure".
//   - Bind to a transport. There is no HTTP layer; see examples/ for
//     wiring into net/http.
//   - Send mail. Lockout notifications go through the [LockoutNotifier]
//     interface and are the caller's delivery problem.
//
// # Theft containment
//
// Refresh tokens rotate on every use under a fixed family id. The store
// keeps only the single latest refresh value per subject, so presenting a
// superseded token fails the exact-match check even while its signature is
// still valid — and the engine treats that mismatch as evidence of theft,
// revoking every outstanding token for the subject rather than rejecting
// the one request. Token families additionally bound the total age of a
// rotation chain, independent of any individual token's TTL.
package tokengate
