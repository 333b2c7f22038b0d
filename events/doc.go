// Package events provides the in-process broadcast bus used to signal session-wide
// conditions (such as an invalidated access token) to any interested listener.
//
// # Delivery
//
// [Bus.Publish] delivers synchronously, in subscription order, on the caller's
// goroutine. Listeners registered for a name receive only that name; sinks
// registered with [Bus.AddSink] receive every event.
//
// # Architecture boundaries
//
// This package knows nothing about HTTP, sessions, or routing. The api client
// publishes; the guard listener subscribes.
//
// # What this package must NOT do
//
//   - Import api, session, guard, or the root portal package.
//   - Retry or buffer events beyond what a sink chooses to do.
package events
