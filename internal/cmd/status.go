package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gravewood/oubliette/internal/config"
	"github.com/gravewood/oubliette/internal/dungeon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current dungeon state",
	Long:  `Attach to the shared block read-only and print a snapshot of every field.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	dir := cfg.Runtime.Dir
	if dir == "" {
		dir = dungeon.DefaultDir()
	}

	st, err := dungeon.AttachReadOnly(dir, cfg.Runtime.BlockName)
	if err != nil {
		fmt.Println("No active dungeon")
		return nil
	}
	defer st.Detach()

	fmt.Printf("Dungeon: %s\n", st.Path())
	fmt.Printf("Running: %v\n", st.Running())
	fmt.Printf("Master PID: %d\n\n", st.MasterPID())

	fmt.Printf("Enemy health: %d\n", st.EnemyHealth())
	fmt.Printf("Attack value: %d\n\n", st.AttackValue())

	fmt.Printf("Trap locked: %v\n", st.TrapLocked())
	fmt.Printf("Trap direction: %s\n", st.TrapDirection())
	fmt.Printf("Current guess: %g\n\n", st.Guess())

	if enc := st.EncodedSpell(); len(enc) > 1 {
		fmt.Printf("Encoded spell: key %d, %q\n", enc[0], enc[1:])
	} else {
		fmt.Println("Encoded spell: none")
	}
	fmt.Printf("Decoded spell: %q\n\n", st.DecodedSpell())

	treasure := make([]byte, 0, dungeon.TreasureSize)
	for i := 0; i < dungeon.TreasureSize; i++ {
		if b := st.Treasure(i); b != 0 {
			treasure = append(treasure, b)
		}
	}
	fmt.Printf("Treasure revealed: %q\n", treasure)
	fmt.Printf("Spoils collected: %q (complete: %v)\n", st.Spoils(), st.SpoilsComplete())

	return nil
}
