package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "worker.spawned", "trap.unlocked")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Worker Lifecycle Events
// -----------------------------------------------------------------------------

// WorkerSpawnedEvent is emitted when the orchestrator starts a character process.
type WorkerSpawnedEvent struct {
	baseEvent
	Role string // Character role name
	PID  int    // Operating-system process ID
}

// NewWorkerSpawnedEvent creates a WorkerSpawnedEvent.
func NewWorkerSpawnedEvent(role string, pid int) WorkerSpawnedEvent {
	return WorkerSpawnedEvent{
		baseEvent: newBaseEvent("worker.spawned"),
		Role:      role,
		PID:       pid,
	}
}

// WorkerExitedEvent is emitted when a character process terminates.
type WorkerExitedEvent struct {
	baseEvent
	Role  string // Character role name
	PID   int    // Operating-system process ID
	Error string // Non-empty if the process exited with failure
}

// NewWorkerExitedEvent creates a WorkerExitedEvent.
func NewWorkerExitedEvent(role string, pid int, errMsg string) WorkerExitedEvent {
	return WorkerExitedEvent{
		baseEvent: newBaseEvent("worker.exited"),
		Role:      role,
		PID:       pid,
		Error:     errMsg,
	}
}

// -----------------------------------------------------------------------------
// Challenge Events
// -----------------------------------------------------------------------------

// ChallengePostedEvent is emitted when the driver posts a challenge to a worker.
type ChallengePostedEvent struct {
	baseEvent
	Role      string // Target character role
	Challenge string // Challenge kind: "attack", "barrier", "trap", "treasure"
}

// NewChallengePostedEvent creates a ChallengePostedEvent.
func NewChallengePostedEvent(role, challenge string) ChallengePostedEvent {
	return ChallengePostedEvent{
		baseEvent: newBaseEvent("challenge.posted"),
		Role:      role,
		Challenge: challenge,
	}
}

// AttackLandedEvent is emitted when the driver reads back a matching attack value.
type AttackLandedEvent struct {
	baseEvent
	Value int32 // The attack value observed in the shared block
}

// NewAttackLandedEvent creates an AttackLandedEvent.
func NewAttackLandedEvent(value int32) AttackLandedEvent {
	return AttackLandedEvent{
		baseEvent: newBaseEvent("attack.landed"),
		Value:     value,
	}
}

// SpellDecodedEvent is emitted when the driver reads back a decoded spell.
type SpellDecodedEvent struct {
	baseEvent
	Decoded string // The decoded spell observed in the shared block
	Correct bool   // Whether it matches the expected plaintext
}

// NewSpellDecodedEvent creates a SpellDecodedEvent.
func NewSpellDecodedEvent(decoded string, correct bool) SpellDecodedEvent {
	return SpellDecodedEvent{
		baseEvent: newBaseEvent("spell.decoded"),
		Decoded:   decoded,
		Correct:   correct,
	}
}

// TrapResolvedEvent is emitted when a trap episode finishes.
type TrapResolvedEvent struct {
	baseEvent
	Unlocked bool    // Whether the search converged inside the budget
	Guess    float64 // The final guess observed
	Rounds   int     // Feedback rounds the driver issued
}

// NewTrapResolvedEvent creates a TrapResolvedEvent.
func NewTrapResolvedEvent(unlocked bool, guess float64, rounds int) TrapResolvedEvent {
	return TrapResolvedEvent{
		baseEvent: newBaseEvent("trap.resolved"),
		Unlocked:  unlocked,
		Guess:     guess,
		Rounds:    rounds,
	}
}

// SpoilsCollectedEvent is emitted when the treasure room closes.
type SpoilsCollectedEvent struct {
	baseEvent
	Spoils   string // Collected bytes, possibly partial
	Complete bool   // Whether all four positions were collected
}

// NewSpoilsCollectedEvent creates a SpoilsCollectedEvent.
func NewSpoilsCollectedEvent(spoils string, complete bool) SpoilsCollectedEvent {
	return SpoilsCollectedEvent{
		baseEvent: newBaseEvent("spoils.collected"),
		Spoils:    spoils,
		Complete:  complete,
	}
}

// -----------------------------------------------------------------------------
// Teardown Events
// -----------------------------------------------------------------------------

// TeardownStepEvent is emitted for each resource removal step at shutdown.
// Failed steps are reported but never interrupt the remaining steps.
type TeardownStepEvent struct {
	baseEvent
	Step  string // e.g. "unmap block", "remove lever-a"
	Error string // Non-empty if the step failed
}

// NewTeardownStepEvent creates a TeardownStepEvent.
func NewTeardownStepEvent(step, errMsg string) TeardownStepEvent {
	return TeardownStepEvent{
		baseEvent: newBaseEvent("teardown.step"),
		Step:      step,
		Error:     errMsg,
	}
}
