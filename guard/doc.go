// Package guard decides, per navigation, whether a portal page renders, shows
// a forbidden state, or redirects to login.
//
// # State machine
//
//   - Session not initialized: [OutcomeBoot].
//   - Route public: [OutcomeRender].
//   - Not authenticated: [OutcomeRedirect] to /login, remembering the path.
//   - Missing a required role: [OutcomeForbidden] with [ReasonRole].
//   - Missing a required permission: [OutcomeForbidden] with [ReasonPermission].
//   - Otherwise: [OutcomeRender].
//
// SUPER_ADMIN passes every role and permission check.
//
// # Adapters
//
// [Guard] keeps the current location for a single client and reacts to the
// unauthorized broadcast. [Middleware] and [GinMiddleware] apply the same
// evaluation to server-rendered or backend-for-frontend routes.
//
// # What this package must NOT do
//
//   - Call the API or touch storage. Logging out is delegated to the session.
//   - Replace server-side authorization.
package guard
