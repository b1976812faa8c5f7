// Package master implements the orchestrator process. The master owns the
// dungeon's lifetime: it creates the shared block and both levers, spawns
// the three character processes from its own binary, drives the challenge
// schedule, and tears everything down exactly once when the run ends.
//
// The challenge schedule itself is pluggable through the [Driver] interface;
// [ScenarioDriver] is the standard scripted run of attack, barrier, trap,
// and treasure-room rounds.
package master
