// Command windshadow computes wind turbine shadow calendars: as an HTTP
// service, or one project at a time from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/windshadow-calendar/internal/config"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "windshadow",
	Short: "Wind turbine shadow calendar",
	Long: `windshadow simulates, for every daylight timestep of a year, the shadow cast
by each wind turbine and records when it falls on an area of interest.

Run "windshadow serve" for the HTTP API or "windshadow demo" followed by
"windshadow run" to try it on the bundled demo project.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = observability.NewLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd, demoCmd, parseCmd, renderCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
