package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a run request that cannot be executed as given.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTooManyTurbines is returned when a run names more than MaxTurbines turbines.
	ErrTooManyTurbines = fmt.Errorf("max %d turbines", MaxTurbines)

	// ErrJobNotFound is returned for lookups of unknown job ids.
	ErrJobNotFound = errors.New("job not found")
)

// DefaultYear is the calendar year simulated when a request leaves it unset.
const DefaultYear = 2025

// RunRequest describes one shadow calendar computation.
//
// The area of interest comes either from a polygon shapefile (AOIPath) or
// from an inline ring of project coordinates (AOI). AOIPath wins when both
// are set.
type RunRequest struct {
	ProjectDir           string       `json:"project_dir" yaml:"project_dir"`
	AOIPath              string       `json:"aoi_path,omitempty" yaml:"aoi_path,omitempty"`
	AOI                  [][2]float64 `json:"aoi,omitempty" yaml:"aoi,omitempty"`
	ProjectEPSG          int          `json:"project_epsg" yaml:"project_epsg"`
	MinSolarElevationDeg float64      `json:"min_solar_elevation_deg" yaml:"min_solar_elevation_deg"`
	Year                 int          `json:"year,omitempty" yaml:"year,omitempty"`
	Turbines             []Turbine    `json:"turbines" yaml:"turbines"`
}

// Validate checks the request before any work is scheduled. An empty turbine
// list is valid and yields an empty calendar. Turbine ids must be unique
// because hits and frame footprints are keyed by id.
func (r RunRequest) Validate() error {
	if len(r.Turbines) > MaxTurbines {
		return ErrTooManyTurbines
	}
	if r.ProjectDir == "" {
		return fmt.Errorf("%w: project_dir is required", ErrInvalidRequest)
	}
	if r.AOIPath == "" && len(r.AOI) == 0 {
		return fmt.Errorf("%w: aoi_path or aoi is required", ErrInvalidRequest)
	}
	if r.AOIPath == "" && len(r.AOI) < 3 {
		return fmt.Errorf("%w: aoi needs at least 3 vertices", ErrInvalidRequest)
	}
	if r.ProjectEPSG <= 0 {
		return fmt.Errorf("%w: project_epsg must be a positive EPSG code", ErrInvalidRequest)
	}
	if r.Year < 0 {
		return fmt.Errorf("%w: year must not be negative", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(r.Turbines))
	for _, t := range r.Turbines {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate turbine id %q", ErrInvalidRequest, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// EffectiveYear returns the requested year, or fallback when unset.
func (r RunRequest) EffectiveYear(fallback int) int {
	if r.Year > 0 {
		return r.Year
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultYear
}
