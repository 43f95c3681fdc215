package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cntsep/go-gsioc/fc203b"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the collector's position, tube, and firmware version",
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

		version, err := ctrl.Version()
		if err != nil {
			return err
		}

		x, y, err := ctrl.Position()
		if err != nil {
			return err
		}

		tube, err := ctrl.Tube()
		if err != nil {
			return err
		}

		fmt.Printf("Version:  %s\n", version)
		fmt.Printf("Position: X=%s Y=%s\n", formatAxis(x), formatAxis(y))

		if tube > 0 {
			fmt.Printf("Tube:     %d\n", tube)
		} else {
			fmt.Printf("Tube:     (not at a tube position)\n")
		}

		return nil
	},
}

func formatAxis(r fc203b.AxisReading) string {
	if !r.Valid {
		return "?"
	}

	return fmt.Sprintf("%.1fmm", r.MM)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
