package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxTurbines caps both the CSV import and the number of turbines per run.
const MaxTurbines = 20

// Turbine is a single wind turbine in project coordinates.
type Turbine struct {
	ID             string  `json:"id" yaml:"id"`
	X              float64 `json:"x" yaml:"x"`
	Y              float64 `json:"y" yaml:"y"`
	HubHeightM     float64 `json:"hub_height_m" yaml:"hub_height_m"`
	RotorDiameterM float64 `json:"rotor_diameter_m" yaml:"rotor_diameter_m"`
}

// MarshalJSON encodes non-finite numeric fields as null, which
// encoding/json would otherwise refuse.
func (t Turbine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string   `json:"id"`
		X              *float64 `json:"x"`
		Y              *float64 `json:"y"`
		HubHeightM     *float64 `json:"hub_height_m"`
		RotorDiameterM *float64 `json:"rotor_diameter_m"`
	}{
		ID:             t.ID,
		X:              finiteOrNil(t.X),
		Y:              finiteOrNil(t.Y),
		HubHeightM:     finiteOrNil(t.HubHeightM),
		RotorDiameterM: finiteOrNil(t.RotorDiameterM),
	})
}

// UnmarshalJSON decodes a turbine; null or missing numbers become NaN so
// Validate can reject them.
func (t *Turbine) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             string   `json:"id"`
		X              *float64 `json:"x"`
		Y              *float64 `json:"y"`
		HubHeightM     *float64 `json:"hub_height_m"`
		RotorDiameterM *float64 `json:"rotor_diameter_m"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Turbine{
		ID:             raw.ID,
		X:              valueOrNaN(raw.X),
		Y:              valueOrNaN(raw.Y),
		HubHeightM:     valueOrNaN(raw.HubHeightM),
		RotorDiameterM: valueOrNaN(raw.RotorDiameterM),
	}
	return nil
}

// Validate reports the first problem that would make the turbine unusable
// in a simulation.
func (t Turbine) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: turbine id is required", ErrInvalidRequest)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"x", t.X},
		{"y", t.Y},
		{"hub_height_m", t.HubHeightM},
		{"rotor_diameter_m", t.RotorDiameterM},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: turbine %s: %s is not a number", ErrInvalidRequest, t.ID, f.name)
		}
	}
	if t.HubHeightM <= 0 {
		return fmt.Errorf("%w: turbine %s: hub_height_m must be positive", ErrInvalidRequest, t.ID)
	}
	if t.RotorDiameterM <= 0 {
		return fmt.Errorf("%w: turbine %s: rotor_diameter_m must be positive", ErrInvalidRequest, t.ID)
	}
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
