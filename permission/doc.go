// Package permission resolves UI-level access: which permissions a route or
// action requires, and whether a caller's roles and permissions satisfy them.
//
// # Mappings
//
// A [Mapping] holds two lookup tables, route path to required permissions and
// action ID to required permissions. Every entry is normalized (trimmed,
// upper-cased, de-duplicated, sorted). An empty requirement means "always
// allowed". [Apply] and [Reset] are pure: they build a new Mapping and never
// touch shared state.
//
// # Resolver
//
// [Resolver] is the explicit context object that owns the current Mapping for a
// running portal. The session store swaps it when a fresh guard configuration
// arrives and resets it on logout.
//
// # Architecture boundaries
//
// This package performs no I/O beyond decoding a caller-supplied reader in
// [LoadGuardConfigYAML]. It is a client-side convenience gate; the backend
// remains the authority for every decision.
//
// # What this package must NOT do
//
//   - Import api, session, guard, or the root portal package.
//   - Fetch guard configuration from the network.
package permission
