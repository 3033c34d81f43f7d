package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/windshadow-calendar/internal/calendar"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
	"github.com/couchcryptid/windshadow-calendar/internal/project"
)

// cliMetrics registers the run metrics once per process.
var cliMetrics = sync.OnceValue(observability.NewMetrics)

var (
	projectPath string
	demoDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute a shadow calendar from a project file",
	Long: `Reads a YAML run request (see "windshadow demo") and writes
outputs/shadow_calendar.csv and outputs/animation_data.json under its
project_dir.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runProject(ctx, projectPath)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write the demo project (AOI shapefile, turbines.csv, project.yaml)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		demo, err := project.WriteDemo(demoDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "AOI:      %s\nTurbines: %s\nProject:  %s\n", demo.AOI, demo.Turbines, demo.Project)
		fmt.Fprintf(cmd.OutOrStdout(), "\nNext: windshadow run --project %s\n", demo.Project)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&projectPath, "project", project.FileName, "path to the YAML run request")
	demoCmd.Flags().StringVar(&demoDir, "dir", "demo", "directory to write the demo project into")
}

func runProject(ctx context.Context, path string) error {
	req, err := project.Load(path)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	aoi, err := project.ResolveAOI(req)
	if err != nil {
		return fmt.Errorf("load AOI: %w", err)
	}

	runner := calendar.NewRunner(logger, cliMetrics())
	out, err := runner.Run(ctx, calendar.Params{
		ProjectDir:           req.ProjectDir,
		AOI:                  aoi,
		EPSG:                 req.ProjectEPSG,
		Turbines:             req.Turbines,
		MinSolarElevationDeg: req.MinSolarElevationDeg,
		Year:                 req.EffectiveYear(cfg.Year),
		Location:             cfg.Location,
		Step:                 cfg.Step,
		Workers:              cfg.Workers,
	}, func(pct int, msg string) {
		logger.Info("progress", "pct", pct, "message", msg)
	})
	if err != nil {
		return err
	}

	logger.Info("calendar written",
		"csv", out.CSVPath,
		"animation", out.AnimationDataPath,
		"rows", out.Rows,
		"computed_days", len(out.ComputedDays),
	)
	return nil
}
