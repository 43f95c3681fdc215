package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cntsep/go-gsioc/positions"
)

var (
	moveX     float64
	moveY     float64
	moveTube  int
	moveLabel string
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move the collection head to coordinates, a tube, or a taught label",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		hasXY := flags.Changed("x") || flags.Changed("y")
		hasTube := flags.Changed("tube")
		hasLabel := flags.Changed("label")

		targets := 0
		for _, set := range []bool{hasXY, hasTube, hasLabel} {
			if set {
				targets++
			}
		}

		if targets != 1 {
			return errors.New("give exactly one target: --x/--y, --tube, or --label")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if hasLabel {
			store, err := positions.Load(cfg.PositionsFile)
			if err != nil {
				return err
			}

			p, ok := store.Get(moveLabel)
			if !ok {
				return fmt.Errorf("no position taught for %q (known: %v)",
					moveLabel, store.Labels())
			}

			moveX, moveY = p.X, p.Y
		}

		ctrl, cleanup, err := openController(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		if hasTube {
			if err := ctrl.MoveToTube(ctx, moveTube); err != nil {
				return err
			}

			fmt.Printf("At tube %d\n", moveTube)

			return nil
		}

		if err := ctrl.MoveToXY(ctx, moveX, moveY); err != nil {
			return err
		}

		x, y, err := ctrl.Position()
		if err != nil {
			return err
		}

		fmt.Printf("At X=%s Y=%s\n", formatAxis(x), formatAxis(y))

		return nil
	},
}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Move the collection head to the origin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctrl, cleanup, err := openController(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		return ctrl.Home(ctx)
	},
}

func init() {
	moveCmd.Flags().Float64Var(&moveX, "x", 0, "Target X in millimeters")
	moveCmd.Flags().Float64Var(&moveY, "y", 0, "Target Y in millimeters")
	moveCmd.Flags().IntVar(&moveTube, "tube", 0, "Target tube number")
	moveCmd.Flags().StringVar(&moveLabel, "label", "", "Taught position label")

	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(homeCmd)
}
