// Package lever provides the two named binary locks guarding the treasure
// room, and the holding policy the competing characters play over them.
//
// Each lever is a lock file taken with a whole-file flock, so a lever
// acquired by one process is visible to every process that opens the same
// name, and the kernel releases it automatically if the holder dies. The
// [Arbiter] implements the two strategies the characters use: grab the first
// lever outright, or try the second and fall back to the first. Holders then
// poll the shared block and let go once the collection completes or the
// dungeon stops running.
package lever
