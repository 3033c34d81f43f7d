package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/windshadow-calendar/internal/adapter/shapefile"
	"github.com/couchcryptid/windshadow-calendar/internal/calendar"
	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/render"
)

var errRejected = errors.New("validation failed")

var (
	outputsDir  string
	renderDay   string
	renderOut   string
	renderAOI   string
	renderTurbs string
)

var parseCmd = &cobra.Command{
	Use:   "parse <turbines.csv>",
	Short: "Print the turbines of a semicolon-delimited CSV as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		turbines, err := readTurbines(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"turbines": turbines,
			"count":    len(turbines),
			"max":      domain.MaxTurbines,
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one day of animation_data.json to a PNG frame sequence",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		anim, err := calendar.ReadAnimation(filepath.Join(outputsDir, calendar.AnimationFileName))
		if err != nil {
			return err
		}
		day, ok := anim.Days[renderDay]
		if !ok {
			return fmt.Errorf("day %s not in animation data", renderDay)
		}

		var scene render.Scene
		if renderAOI != "" {
			if scene.AOI, err = shapefile.LoadAOI(renderAOI); err != nil {
				return err
			}
		}
		if renderTurbs != "" {
			if scene.Turbines, err = readTurbines(renderTurbs); err != nil {
				return err
			}
		}

		out := renderOut
		if out == "" {
			out = filepath.Join(outputsDir, "frames", renderDay)
		}
		paths, err := render.RenderDay(out, day, scene)
		if err != nil {
			return err
		}
		logger.Info("frames written", "day", renderDay, "count", len(paths), "dir", out)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Cross-check shadow_calendar.csv against animation_data.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rep, err := calendar.Verify(outputsDir)
		if err != nil {
			return err
		}
		if !report(cmd.OutOrStdout(), rep) {
			return errRejected
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&outputsDir, "outputs", "outputs", "directory holding animation_data.json")
	renderCmd.Flags().StringVar(&renderDay, "day", "", "local date to render (YYYY-MM-DD)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "frame directory (default <outputs>/frames/<day>)")
	renderCmd.Flags().StringVar(&renderAOI, "aoi", "", "AOI shapefile to draw")
	renderCmd.Flags().StringVar(&renderTurbs, "turbines", "", "turbine CSV to draw")
	_ = renderCmd.MarkFlagRequired("day")

	validateCmd.Flags().StringVar(&outputsDir, "outputs", "outputs", "directory holding the calendar outputs")
}

func readTurbines(path string) ([]domain.Turbine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return domain.ParseTurbineCSV(f)
}

// report prints a PASS/FAIL summary followed by every problem.
func report(w io.Writer, rep calendar.Report) bool {
	status := "\033[32mPASS\033[0m"
	if !rep.OK() {
		status = fmt.Sprintf("\033[31mFAIL (%d problems)\033[0m", len(rep.Problems))
	}
	fmt.Fprintf(w, "  %-42s %s\n", "calendar / animation consistency", status)
	fmt.Fprintf(w, "\nRows: %d, computed days: %d\n", rep.Rows, rep.ComputedDays)

	for i, p := range rep.Problems {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, p)
	}
	if rep.OK() {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
