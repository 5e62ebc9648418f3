// Package limiters enforces temporary account lockout from repeated failed
// authentication attempts. Counters and lockout records live in the shared
// credential store so every service instance observes the same state.
package limiters
