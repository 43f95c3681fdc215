package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var beepDuration time.Duration

var beepCmd = &cobra.Command{
	Use:   "beep",
	Short: "Sound the collector's buzzer",
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

		return ctrl.Beep(beepDuration)
	},
}

var divertCmd = &cobra.Command{
	Use:       "divert {collect|waste}",
	Short:     "Switch the diverter valve",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"collect", "waste"},
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

		return ctrl.SetDivert(args[0] == "collect")
	},
}

var relaxCmd = &cobra.Command{
	Use:   "relax",
	Short: "Release the axis motors so the head can be moved by hand",
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

		return ctrl.RelaxMotors()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the collector and re-establish the session",
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

		if err := ctrl.Reset(ctx); err != nil {
			return err
		}

		version, err := ctrl.Version()
		if err != nil {
			return err
		}

		fmt.Printf("Reset complete, version: %s\n", version)

		return nil
	},
}

func init() {
	beepCmd.Flags().DurationVar(&beepDuration, "duration", 500*time.Millisecond, "Beep duration (max 10s)")

	rootCmd.AddCommand(beepCmd)
	rootCmd.AddCommand(divertCmd)
	rootCmd.AddCommand(relaxCmd)
	rootCmd.AddCommand(resetCmd)
}
