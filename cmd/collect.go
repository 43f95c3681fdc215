package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cntsep/go-gsioc/internal/wait"
	"github.com/cntsep/go-gsioc/positions"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run interactive collection cycles at taught positions",
	Long: `collect reads fraction classifications from standard input and routes
each fraction to its taught position.

For every line read, the head moves to the matching position, stays there
for the configured collection window, and then returns to the waste
position. Input keys:

  m  metallic
  c  semiconducting
  w  waste (skip collection, stay at waste)
  q  quit

The collection window is measure_seconds + tubing_delay_seconds -
internal_delay_seconds from the configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := positions.Load(cfg.PositionsFile)
		if err != nil {
			return err
		}

		waste, ok := store.Get(positions.Waste)
		if !ok {
			return fmt.Errorf("no %q position taught; run teach first", positions.Waste)
		}

		ctrl, cleanup, err := openController(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		// Start at waste so an early fraction cannot land in a sample tube.
		if err := ctrl.MoveToXY(ctx, waste.X, waste.Y); err != nil {
			return err
		}

		fmt.Printf("Collection window: %v\n", cfg.CollectionWait())
		fmt.Println("Enter m (metallic), c (semiconducting), w (waste), q (quit):")

		scanner := bufio.NewScanner(os.Stdin)

		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}

			var label string

			switch strings.TrimSpace(scanner.Text()) {
			case "m":
				label = positions.Metallic
			case "c":
				label = positions.Semiconducting
			case "w":
				label = positions.Waste
			case "q":
				return nil
			default:
				fmt.Println("unknown input; use m, c, w, or q")

				continue
			}

			target, ok := store.Get(label)
			if !ok {
				fmt.Printf("no position taught for %s, staying at waste\n", label)

				continue
			}

			if err := ctrl.MoveToXY(ctx, target.X, target.Y); err != nil {
				return err
			}

			fmt.Printf("collecting %s at (%.1f, %.1f) for %v\n",
				label, target.X, target.Y, cfg.CollectionWait())

			if !wait.Sleep(ctx, cfg.CollectionWait()) {
				break
			}

			if err := ctrl.MoveToXY(ctx, waste.X, waste.Y); err != nil {
				return err
			}

			fmt.Println("back at waste")
		}

		if err := scanner.Err(); err != nil {
			return err
		}

		return ctx.Err()
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
