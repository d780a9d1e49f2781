// Package audit implements async event dispatching for admin authentication.
//
// A [Dispatcher] relays [Event] values to a [Sink] on its own goroutine. Sinks
// shipped here: [LogSink] (structured logr output), [JSONWriterSink] (JSON
// lines) and [NoOpSink].
//
// The package does not decide which events to emit; the Engine does. It must
// not import adminauth or any sibling internal package.
package audit
