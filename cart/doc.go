// Package cart holds the applicant's shopping cart: a map from SKU ID to a
// product snapshot and a quantity, persisted to a durable tier after every
// mutation under a per-user key.
//
// # Invariants
//
// Quantities are positive integers. Add and SetQuantity never exceed the
// snapshot's available stock; an entry whose quantity would drop to zero or
// below is removed. Replace derives each entry's ceiling from its
// [ReplacePolicy].
//
// # Persistence
//
// Every mutation persists synchronously before it returns. A failed write is
// returned wrapped in [ErrPersist]; the in-memory cart keeps the mutation so
// the caller's view stays consistent with what the user just did.
//
// Stored payloads are validated entry by entry on read. Structurally invalid
// entries are dropped and an unparsable payload reads as an empty cart.
//
// # Legacy migration
//
// Older clients kept the cart in the session-scoped tier. [MigrateLegacy] moves
// such a payload into the durable tier once per key. [Open] and
// [Store.SwitchUser] run it before reading, never the read path itself.
package cart
