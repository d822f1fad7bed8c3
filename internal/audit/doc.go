// Package audit implements async event dispatching for access decisions.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured decision record with timestamp, subject, config digest, outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit — that responsibility belongs to the Provider.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on decision outcome.
//   - Import accesskit or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
