// Package sigbus maps OS signals to the two dungeon event kinds plus
// shutdown, and dispatches them to registered handlers.
//
// Delivery is split in two halves. The asynchronous half is the Go runtime's
// signal forwarding into a buffered channel; nothing else happens in signal
// context. The synchronous half is Run, a drain loop owned by the worker's
// main goroutine that pops one signal at a time and invokes exactly one
// handler per delivery. Handlers are therefore free to block, log, and
// mutate shared state: they never run concurrently with each other and never
// interrupt other code.
//
// The orchestrator side is Raise, which targets an event kind at a specific
// process ID.
package sigbus
