// Package exchange runs the request/response loop against a device on a
// serial line.
//
// # Overview
//
// A Session repeatedly walks a command list. For every word it discards any
// stale input, writes the 4-byte request, collects up to 14 response bytes
// within the receive timeout, classifies the frame and emits one line to a
// Sink. One full walk of the list is a round; rounds repeat until Stop.
//
//	sess := exchange.New(exchange.NewLineWriter(os.Stdout),
//	    exchange.WithLogger(logger),
//	    exchange.WithRxTimeout(200*time.Millisecond),
//	)
//	if err := sess.Start(exchange.Words{0x00000001, 0x00000002}, serialcomm.Config{Name: "/dev/ttyUSB0"}); err != nil {
//	    log.Fatal(err)
//	}
//	...
//	sess.Stop()
//	<-sess.Done()
//
// # Lifecycle
//
//	Idle ──Start──▶ Running ──Stop──▶ StopRequested ──▶ Stopped
//	                   │
//	                   └─transport failure─▶ Errored ──▶ Idle
//
// Start returns ErrAlreadyRunning while a run is active and
// ErrEmptyCommandList when the list has no words. Stop is cooperative: it is
// observed before each write and during the inter-word and inter-round gaps,
// never in the middle of a bounded read.
//
// # Command list
//
// The loop takes a fresh CommandSource.Snapshot at the start of every round,
// so edits to the list only take effect at the next round boundary.
//
// # Errors
//
// A response shorter than 14 bytes is data, reported as a SHORT line; the
// loop moves on to the next word. Only transport failures (*TransportError)
// end a run. They are emitted as an ERROR line, reported to the handler set
// with WithErrorHandler and kept in Session.Err.
//
// # Sinks
//
// Sinks receive events from both the host goroutine (START, STOP requested)
// and the loop goroutine, so implementations must be safe for concurrent use.
// Lifecycle events are emitted while the session lock is held; a Sink must not
// call back into the Session.
package exchange
