// Package portal is the client-side core of the IT-asset portal: an
// authenticated REST client, a session store, a permission resolver fed by
// the server's guard config, a per-user cart, and a route guard, wired
// together by [Builder] into a [Portal].
//
// A Portal is safe for concurrent use after [Builder.Build] returns. Each
// Portal models one signed-in client; run several for several users.
//
// # Architecture boundaries
//
// portal is the public surface. Sub-packages own one concern each:
//
//   - api: HTTP transport, envelope decoding, typed endpoints
//   - session: login, logout, rehydration, guard-config refresh
//   - permission: route/action requirement mapping and checks
//   - cart, appcache: persisted client state
//   - guard: navigation decisions and the 401 redirect
//   - storage: memory, SQLite and Redis key/value tiers
//   - events: the in-process broadcast bus
//
// Sub-packages never import portal.
//
// # What this package must NOT do
//
//   - Re-implement decisions that belong to a sub-package (Portal delegates).
//   - Perform I/O during Builder configuration; only Build touches storage.
//   - Hide server error messages; *api.Error reaches callers unchanged.
package portal
