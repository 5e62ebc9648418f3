// Package flows contains the orchestration bodies for sign-in, refresh,
// and logout. Each flow is a plain function over an explicit dependency
// struct so it can be exercised without the root package and so the engine
// stays a thin wiring layer. Flows return flow-local results and failure
// kinds; only the root package translates those into caller-facing errors.
package flows
