package cmd

import (
	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/logging"
)

// logEvents mirrors every published event into the process log, so a run's
// progress can be followed without the driver or the characters knowing
// anything about output.
func logEvents(bus *event.Bus, log *logging.Logger) {
	bus.SubscribeAll(func(e event.Event) {
		switch ev := e.(type) {
		case event.WorkerSpawnedEvent:
			log.Info("worker spawned", "role", ev.Role, "pid", ev.PID)
		case event.WorkerExitedEvent:
			if ev.Error != "" {
				log.Warn("worker exited", "role", ev.Role, "pid", ev.PID, "error", ev.Error)
			} else {
				log.Info("worker exited", "role", ev.Role, "pid", ev.PID)
			}
		case event.ChallengePostedEvent:
			log.Info("challenge posted", "role", ev.Role, "challenge", ev.Challenge)
		case event.AttackLandedEvent:
			log.Info("attack landed", "value", ev.Value)
		case event.SpellDecodedEvent:
			log.Info("spell decoded", "decoded", ev.Decoded, "correct", ev.Correct)
		case event.TrapResolvedEvent:
			log.Info("trap resolved", "unlocked", ev.Unlocked, "guess", ev.Guess, "rounds", ev.Rounds)
		case event.SpoilsCollectedEvent:
			log.Info("spoils collected", "spoils", ev.Spoils, "complete", ev.Complete)
		case event.TeardownStepEvent:
			if ev.Error != "" {
				log.Warn("teardown step failed", "step", ev.Step, "error", ev.Error)
			} else {
				log.Info("teardown step", "step", ev.Step)
			}
		default:
			log.Debug("event", "type", e.EventType())
		}
	})
}
