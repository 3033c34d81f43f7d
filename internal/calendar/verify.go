package calendar

import (
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
)

// Report lists inconsistencies found between the two output files.
type Report struct {
	Rows         int
	ComputedDays int
	Problems     []string
}

// OK reports whether no problems were found.
func (r Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) problemf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify cross-checks shadow_calendar.csv against animation_data.json in an
// outputs directory. It returns an error only when a file cannot be read.
func Verify(outputsDir string) (Report, error) {
	hits, err := ReadHitsCSV(filepath.Join(outputsDir, CSVFileName))
	if err != nil {
		return Report{}, err
	}
	anim, err := ReadAnimation(filepath.Join(outputsDir, AnimationFileName))
	if err != nil {
		return Report{}, err
	}
	return crossCheck(hits, anim), nil
}

func crossCheck(hits []domain.Hit, anim domain.AnimationData) Report {
	rep := Report{Rows: len(hits), ComputedDays: len(anim.Days)}

	intersecting := 0
	for date, day := range anim.Days {
		if day == nil {
			rep.problemf("day %s: missing payload", date)
			continue
		}
		if !day.HasHit {
			rep.problemf("day %s: kept without has_hit", date)
		}
		for _, frame := range day.Timesteps {
			if frame == nil {
				continue
			}
			for _, sf := range frame.Turbines {
				if sf.IntersectsAOI {
					intersecting++
				}
			}
		}
	}

	for i, h := range hits {
		day, ok := anim.Days[h.Date]
		if !ok || day == nil {
			rep.problemf("row %d: date %s is not a computed day", i+1, h.Date)
			continue
		}
		frame, ok := day.Timesteps[h.TimestampLocal]
		if !ok {
			rep.problemf("row %d: timestep %s missing from animation", i+1, h.TimestampLocal)
			continue
		}
		if !frameHasHit(frame, h.TurbineID) {
			rep.problemf("row %d: turbine %s at %s does not intersect the AOI in the animation", i+1, h.TurbineID, h.TimestampLocal)
		}
	}

	if intersecting != len(hits) {
		rep.problemf("animation has %d intersecting footprints, calendar has %d rows", intersecting, len(hits))
	}
	return rep
}

func frameHasHit(frame *domain.Frame, turbineID string) bool {
	if frame == nil {
		return false
	}
	for _, sf := range frame.Turbines {
		if sf.TurbineID == turbineID && sf.IntersectsAOI {
			return true
		}
	}
	return false
}
