// Package domain models wind turbine shadow calendar runs.
//
// # Turbine Records
//
// A turbine is identified by a free-text id and positioned by planar
// coordinates in the project's projected reference system (an EPSG code,
// e.g. 32633 for WGS 84 / UTM zone 33N). Hub height and rotor diameter are
// in metres.
//
// Turbines are usually imported from a semicolon-delimited text file:
//
//	id;x;y;hub_height_m;rotor_diameter_m
//	T1;500200;4649800;110;140
//
// The import is lenient (see [ParseTurbineCSV]): the first row is always
// treated as the header, at most [MaxTurbines] rows are kept, and numeric
// columns that do not parse become NaN instead of failing the import.
// Validation happens later, when a run is requested ([RunRequest.Validate]).
//
// # Calendar Runs
//
// A run walks a whole calendar year in fixed steps (15 minutes by default)
// in the project's local time zone. For every step and turbine with the sun
// above the minimum elevation, the rotor's shadow footprint is approximated
// by an ellipse and tested against the area of interest (AOI). Each
// intersection is a [Hit], written as one row of shadow_calendar.csv.
// Footprints of days with at least one hit are kept in [AnimationData] and
// written to animation_data.json for frame rendering.
//
// # Jobs
//
// Runs triggered through the API execute in the background. A [Job] tracks
// status ("running", "done", "error"), progress percentage and message, a
// log of progress messages, and the run's [Outputs] once finished.
package domain
