// Package tokens owns every read and write of token lifecycle state: the
// per-subject access and refresh slots, the per-subject key index used for
// bulk revocation, the blacklist, remember-me markers, and token-family
// records. Rotation through this package is the replay-detection mechanism:
// the refresh slot holds only the single latest value, so any previously
// rotated token fails the exact-match validation even while its own TTL is
// still running.
package tokens
