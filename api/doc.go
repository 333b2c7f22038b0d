// Package api is the portal's HTTP client: it issues requests against the
// versioned API prefix, unwraps the {success, data, error} envelope and
// exposes one typed method per backend endpoint.
//
// # Error taxonomy
//
//   - Transport and unparsable non-OK responses wrap [ErrRequestFailed].
//   - An OK response whose body is not a valid envelope wraps [ErrInvalidResponse].
//   - Server-declared failures are returned as *[Error] carrying the server
//     code and message verbatim. A 401 *Error also matches [ErrUnauthorized].
//   - Client-side precondition failures ([ErrUnauthorized] for a missing token,
//     [ErrConfirmationRequired], [ErrInvalidInput]) never reach the network.
//
// # Unauthorized broadcast
//
// A 401 on any path other than the login and logout endpoints publishes
// [events.AuthUnauthorized] on the configured publisher before the error is
// returned, so a listener can force a re-login.
//
// # What this package must NOT do
//
//   - Retry requests or impose a timeout unless [Config.Timeout] is set.
//   - Hold session state. Tokens are passed per call.
package api
