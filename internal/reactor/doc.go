// Package reactor implements the single-threaded cooperative event loop that drives catalog and transport
// operations.
//
// A [Reactor] owns a queue of callbacks. Any goroutine may [Reactor.Post] a callback, but callbacks only
// run inside [Reactor.Turn], on the goroutine that owns the reactor. Blocking work (HTTP requests, stream
// reads) runs on its own goroutine via [Spawn] and publishes its result by posting a callback that
// resolves a [Future]. [Run] drives the loop in bounded ticks until a future resolves.
//
// Because results are only published from inside Turn, a goroutine that stops driving the reactor also
// stops every pending operation. Code that must block on something the reactor produces (draining a file
// stream, for example) has to run that wait on a worker goroutine and keep turning the reactor from the
// owner goroutine.
package reactor
