// Package event defines in-process event types for decoupling oubliette
// components. The orchestrator and its challenge driver publish events as a
// run progresses; the command layer subscribes to render progress without the
// driver knowing anything about output.
//
// The bus is synchronous and in-process only. Cross-process coordination
// happens exclusively through the shared dungeon block and signals; this
// package never crosses an address space.
package event
