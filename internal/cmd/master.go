package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/event"
	"github.com/gravewood/oubliette/internal/logging"
	"github.com/gravewood/oubliette/internal/master"
)

var (
	masterRounds int
	masterSeed   uint64
)

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the dungeon master",
	Long: `Create the shared dungeon, spawn the three character processes,
and drive the challenge schedule. All resources are removed when the
run ends, on success or failure.`,
	RunE: runMaster,
}

func init() {
	masterCmd.Flags().IntVar(&masterRounds, "rounds", 3, "challenge rounds before the treasure room")
	masterCmd.Flags().Uint64Var(&masterSeed, "seed", 0, "challenge seed (0 picks one from the clock)")
	rootCmd.AddCommand(masterCmd)
}

func runMaster(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if errs := cfg.Validate(); len(errs) != 0 {
		return config.ValidationErrors(errs)
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, "master", cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
	defer stop()

	bus := event.NewBus()
	logEvents(bus, log)

	m := master.New(cfg, log, bus)
	if err := m.Setup(); err != nil {
		return fmt.Errorf("failed to set up dungeon: %w", err)
	}
	if err := m.Spawn(ctx); err != nil {
		m.Teardown()
		return fmt.Errorf("failed to spawn characters: %w", err)
	}

	seed := masterSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	d := master.NewScenarioDriver(log, seed)
	d.Rounds = masterRounds

	if err := m.Run(ctx, d); err != nil {
		return fmt.Errorf("dungeon run failed: %w", err)
	}
	return nil
}
