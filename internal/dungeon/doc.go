// Package dungeon defines the shared memory block that all four processes
// coordinate through, and the operations to create, attach, detach, and
// destroy it.
//
// # Layout
//
// The block has a fixed layout of scalar fields followed by byte buffers.
// Scalar fields are read and written through atomic operations on the mapped
// region, giving each individual field a consistent snapshot across address
// spaces. There is no multi-field transaction: a reader may observe any
// interleaving of independent field updates, and the field-level protocol
// below is the only consistency contract.
//
// # Field protocol
//
//   - running: set true once by the orchestrator at creation, set false
//     exactly once at shutdown. Workers re-check it around any blocking or
//     looping operation.
//   - trap direction and guess: the guessing worker writes the guess first,
//     then publishes DirectionGuessSubmitted; the orchestrator writes its
//     feedback direction only after reading the guess.
//   - spell buffers: the writer copies the payload bytes first, then
//     publishes the length word; readers load the length before copying.
//   - treasure and spoils: four bytes each, packed into one word and updated
//     byte-at-a-time with compare-and-swap. Bytes are written at most once
//     per episode, strictly left to right; spoils byte 3 becoming non-zero is
//     the completion signal lever holders poll for.
//
// # Lifecycle
//
// The orchestrator creates the block under a well-known name before spawning
// workers; each worker attaches read/write, retrying while the name does not
// exist yet. The orchestrator is the sole destroyer, after all workers have
// detached.
package dungeon
