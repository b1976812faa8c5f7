package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravewood/oubliette/internal/character"
	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/logging"
)

func init() {
	rootCmd.AddCommand(
		workerCmd(character.RoleBarbarian, "Run the barbarian character",
			"Attack challenges and the first treasure-room lever."),
		workerCmd(character.RoleWizard, "Run the wizard character",
			"Barrier spell decoding and the second treasure-room lever."),
		workerCmd(character.RoleRogue, "Run the rogue character",
			"Trap disarming and treasure collection."),
	)
}

// workerCmd builds the subcommand for one character role. The master spawns
// these; running one by hand against a live dungeon works too.
func workerCmd(role character.Role, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   string(role),
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, role)
		},
	}
}

func runWorker(cmd *cobra.Command, role character.Role) error {
	cfg := config.Get()
	if errs := cfg.Validate(); len(errs) != 0 {
		return config.ValidationErrors(errs)
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, string(role), cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	bus := event.NewBus()
	logEvents(bus, log)

	c, err := character.New(role, cfg, log, bus)
	if err != nil {
		return err
	}
	if err := c.Run(cmd.Context()); err != nil {
		return fmt.Errorf("%s failed: %w", role, err)
	}
	return nil
}
