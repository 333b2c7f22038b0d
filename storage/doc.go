// Package storage provides the key/value tiers that back persisted client state.
//
// # Tiers
//
// The portal distinguishes a durable tier (survives restarts: [SQLite] or
// [Redis]) from a session-scoped tier ([Memory]) that lives only as long as the
// process. Callers pick the tier; this package does not know which is which.
//
// # Architecture boundaries
//
// Values are opaque strings. Encoding, validation, and migration between tiers
// belong to the cart, session, and appcache packages.
//
// # What this package must NOT do
//
//   - Interpret stored payloads.
//   - Retry failed backend calls. Failures surface as [ErrUnavailable].
package storage
