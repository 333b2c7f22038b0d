// Package session owns the authenticated user, the access token and the
// role/permission sets derived from them.
//
// # Lifecycle
//
// [Store.Init] rehydrates a persisted session from the durable tier, dropping
// partial or expired payloads. [Store.Login] replaces it. [Store.Logout] runs
// in two independent steps: a synchronous local clear (memory, durable key,
// permission mapping) that always happens, then a fire-and-forget remote
// logout whose errors are logged and never returned.
//
// Whenever the access token changes the store fetches a fresh guard
// configuration in the background and applies it to the [permission.Resolver].
// A failed fetch resets the resolver to its defaults. Fetches go through a
// single [fetch.Latest] slot, so a token change cancels the previous fetch.
//
// # Architecture boundaries
//
// Authentication is delegated to an [Authenticator] (normally *api.Client).
// Authentication status is always derived from the stored fields, never kept
// as a flag of its own.
//
// # What this package must NOT do
//
//   - Verify token signatures. Expiry is read from unverified claims only to
//     avoid rehydrating a session the server will reject anyway.
//   - Import guard, cart, or the root portal package.
package session
