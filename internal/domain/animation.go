package domain

// Hit is one row of shadow_calendar.csv: a timestep at which a turbine's
// shadow footprint intersects the area of interest.
type Hit struct {
	TurbineID       string
	TimestampLocal  string
	Date            string
	Time            string
	SunAzimuthDeg   float64
	SunElevationDeg float64
}

// HitCSVHeader lists the shadow_calendar.csv columns in order.
var HitCSVHeader = []string{"turbine_id", "timestamp_local", "date", "time", "sun_azimuth_deg", "sun_elevation_deg"}

// SunPosition is the solar azimuth (clockwise from north) and elevation in degrees.
type SunPosition struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
}

// ShadowFrame is one turbine's footprint at a timestep.
type ShadowFrame struct {
	TurbineID     string     `json:"turbine_id"`
	Center        [2]float64 `json:"center"`
	MajorM        float64    `json:"major_m"`
	MinorM        float64    `json:"minor_m"`
	RotationDeg   float64    `json:"rotation_deg"`
	IntersectsAOI bool       `json:"intersects_aoi"`
}

// Frame holds all footprints at a single timestep.
type Frame struct {
	Sun      SunPosition   `json:"sun"`
	Turbines []ShadowFrame `json:"turbines"`
}

// AnimationDay groups a day's frames keyed by local RFC 3339 timestamp.
type AnimationDay struct {
	Timesteps map[string]*Frame `json:"timesteps"`
	HasHit    bool              `json:"has_hit"`
}

// AnimationMeta echoes the run parameters.
type AnimationMeta struct {
	Year                 int     `json:"year"`
	MinSolarElevationDeg float64 `json:"min_solar_elevation_deg"`
	ProjectEPSG          int     `json:"project_epsg"`
}

// AnimationData is the content of animation_data.json.
type AnimationData struct {
	Days map[string]*AnimationDay `json:"days"`
	Meta AnimationMeta            `json:"meta"`
}
