// Package calendar runs the yearly shadow simulation for a set of turbines
// against an area of interest and writes the calendar and animation outputs.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/geo"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
	"github.com/couchcryptid/windshadow-calendar/internal/shadow"
	"github.com/couchcryptid/windshadow-calendar/internal/solar"
)

// Output file names, relative to <project_dir>/outputs.
const (
	OutputsDirName    = "outputs"
	CSVFileName       = "shadow_calendar.csv"
	AnimationFileName = "animation_data.json"
)

const (
	// DefaultStep is the simulation timestep.
	DefaultStep = 15 * time.Minute
	// DefaultWorkers bounds how many days are simulated concurrently.
	DefaultWorkers = 4
	// DefaultTimeZone is the local zone used for timestamps and day boundaries.
	DefaultTimeZone = "Europe/Rome"

	progressEvery = 200
)

// ProgressFunc receives a completion percentage and a human-readable message.
type ProgressFunc func(pct int, msg string)

// Params configures one run.
type Params struct {
	ProjectDir           string
	AOI                  geo.MultiPolygon
	EPSG                 int
	Turbines             []domain.Turbine
	MinSolarElevationDeg float64
	Year                 int
	Location             *time.Location
	Step                 time.Duration
	Workers              int
}

func (p Params) withDefaults() (Params, error) {
	if p.Year <= 0 {
		p.Year = domain.DefaultYear
	}
	if p.Step <= 0 {
		p.Step = DefaultStep
	}
	if p.Workers <= 0 {
		p.Workers = DefaultWorkers
	}
	if p.Location == nil {
		loc, err := time.LoadLocation(DefaultTimeZone)
		if err != nil {
			return p, fmt.Errorf("load time zone %s: %w", DefaultTimeZone, err)
		}
		p.Location = loc
	}
	if len(p.AOI) == 0 {
		return p, errors.New("area of interest is empty")
	}
	return p, nil
}

// Runner executes calendar runs.
type Runner struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRunner creates a Runner reporting to the given logger and metrics.
func NewRunner(logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{logger: logger, metrics: metrics}
}

// placedTurbine is a turbine with its geographic position precomputed.
type placedTurbine struct {
	domain.Turbine
	lat, lon float64
}

// daySpan is a run of consecutive timesteps sharing the same local date.
type daySpan struct {
	date  string
	first int
	count int
}

type dayResult struct {
	day  *domain.AnimationDay
	hits []domain.Hit
}

// Run simulates every timestep of the year and writes shadow_calendar.csv and
// animation_data.json under <ProjectDir>/outputs. Days are processed
// concurrently; the outputs do not depend on the number of workers.
func (r *Runner) Run(ctx context.Context, params Params, progress ProgressFunc) (domain.Outputs, error) {
	p, err := params.withDefaults()
	if err != nil {
		return domain.Outputs{}, err
	}
	if progress == nil {
		progress = func(int, string) {}
	}

	outputsDir := filepath.Join(p.ProjectDir, OutputsDirName)
	if err := os.MkdirAll(outputsDir, 0o755); err != nil {
		return domain.Outputs{}, fmt.Errorf("create outputs dir: %w", err)
	}

	transformer, err := geo.NewTransformer(p.EPSG)
	if err != nil {
		return domain.Outputs{}, err
	}
	turbines := make([]placedTurbine, len(p.Turbines))
	for i, t := range p.Turbines {
		lat, lon := transformer.ToLatLon(t.X, t.Y)
		turbines[i] = placedTurbine{Turbine: t, lat: lat, lon: lon}
	}

	start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, p.Location)
	end := time.Date(p.Year+1, time.January, 1, 0, 0, 0, 0, p.Location)
	total := int(end.Sub(start) / p.Step)
	spans := splitDays(start, p.Step, total, p.Location)

	r.logger.Info("calendar run started",
		"project_dir", p.ProjectDir,
		"epsg", p.EPSG,
		"turbines", len(turbines),
		"year", p.Year,
		"timesteps", total,
		"workers", p.Workers,
	)
	began := time.Now()

	sim := simulation{
		params:    p,
		turbines:  turbines,
		aoiBounds: p.AOI.Bounds(),
		start:     start,
	}

	var (
		mu   sync.Mutex
		done int
	)
	report := func(steps int) {
		mu.Lock()
		defer mu.Unlock()
		prev := done
		done += steps
		for k := prev/progressEvery + 1; k*progressEvery <= done; k++ {
			step := k * progressEvery
			progress(min(99, step*100/total), fmt.Sprintf("Processed %d/%d timesteps", step, total))
		}
	}

	results := make([]dayResult, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, span := range spans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = sim.day(span)
			r.metrics.TimestepsProcessed.Add(float64(span.count))
			report(span.count)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Outputs{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Outputs{}, err
	}

	anim := domain.AnimationData{
		Days: make(map[string]*domain.AnimationDay),
		Meta: domain.AnimationMeta{
			Year:                 p.Year,
			MinSolarElevationDeg: p.MinSolarElevationDeg,
			ProjectEPSG:          p.EPSG,
		},
	}
	var hits []domain.Hit
	computedDays := []string{}
	for i, res := range results {
		hits = append(hits, res.hits...)
		if res.day != nil && res.day.HasHit {
			anim.Days[spans[i].date] = res.day
			computedDays = append(computedDays, spans[i].date)
		}
	}
	sort.Strings(computedDays)
	r.metrics.ShadowHits.Add(float64(len(hits)))

	csvPath := filepath.Join(outputsDir, CSVFileName)
	if err := WriteHitsCSV(csvPath, hits); err != nil {
		return domain.Outputs{}, err
	}
	animPath := filepath.Join(outputsDir, AnimationFileName)
	if err := WriteAnimation(animPath, anim); err != nil {
		return domain.Outputs{}, err
	}

	elapsed := time.Since(began)
	r.metrics.RunDuration.Observe(elapsed.Seconds())
	r.logger.Info("calendar run completed",
		"project_dir", p.ProjectDir,
		"rows", len(hits),
		"computed_days", len(computedDays),
		"duration", elapsed,
	)

	progress(100, "Completed")
	return domain.Outputs{
		CSVPath:           csvPath,
		AnimationDataPath: animPath,
		ComputedDays:      computedDays,
		Rows:              len(hits),
	}, nil
}

// splitDays groups the timeline into spans of consecutive steps on the same local date.
func splitDays(start time.Time, step time.Duration, total int, loc *time.Location) []daySpan {
	var spans []daySpan
	for i := 0; i < total; i++ {
		date := start.Add(time.Duration(i) * step).In(loc).Format(time.DateOnly)
		if n := len(spans); n > 0 && spans[n-1].date == date {
			spans[n-1].count++
			continue
		}
		spans = append(spans, daySpan{date: date, first: i, count: 1})
	}
	return spans
}

type simulation struct {
	params    Params
	turbines  []placedTurbine
	aoiBounds geo.BBox
	start     time.Time
}

// day simulates every timestep of one span. It only reads shared state.
func (s simulation) day(span daySpan) dayResult {
	var res dayResult
	for i := span.first; i < span.first+span.count; i++ {
		ts := s.start.Add(time.Duration(i) * s.params.Step).In(s.params.Location)
		tsKey := ts.Format(time.RFC3339)

		for _, t := range s.turbines {
			az, el := solar.Position(t.lat, t.lon, ts)
			if el <= s.params.MinSolarElevationDeg {
				continue
			}

			fp := shadow.Ellipse(t.X, t.Y, t.HubHeightM, t.RotorDiameterM, az, el, shadow.DefaultVertices)
			intersects := s.aoiBounds.Overlaps(fp.Polygon.Bounds()) && s.params.AOI.Intersects(fp.Polygon)

			if res.day == nil {
				res.day = &domain.AnimationDay{Timesteps: make(map[string]*domain.Frame)}
			}
			frame, ok := res.day.Timesteps[tsKey]
			if !ok {
				frame = &domain.Frame{Sun: domain.SunPosition{AzimuthDeg: az, ElevationDeg: el}}
				res.day.Timesteps[tsKey] = frame
			}
			frame.Turbines = append(frame.Turbines, domain.ShadowFrame{
				TurbineID:     t.ID,
				Center:        [2]float64{fp.Center.X, fp.Center.Y},
				MajorM:        fp.MajorM,
				MinorM:        fp.MinorM,
				RotationDeg:   fp.RotationDeg,
				IntersectsAOI: intersects,
			})

			if intersects {
				res.day.HasHit = true
				res.hits = append(res.hits, domain.Hit{
					TurbineID:       t.ID,
					TimestampLocal:  tsKey,
					Date:            span.date,
					Time:            ts.Format("15:04"),
					SunAzimuthDeg:   round5(az),
					SunElevationDeg: round5(el),
				})
			}
		}
	}
	return res
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
