// Package project reads and writes project files: a YAML run request plus the
// AOI shapefile and turbine CSV it points at.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/windshadow-calendar/internal/adapter/shapefile"
	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/geo"
)

// File names written by WriteDemo.
const (
	FileName         = "project.yaml"
	TurbinesFileName = "turbines.csv"
)

// DemoEPSG is the projected CRS of the demo project.
const DemoEPSG = 32633

// DemoTurbines are the two turbines of the demo project.
var DemoTurbines = []domain.Turbine{
	{ID: "T1", X: 500200, Y: 4649800, HubHeightM: 110, RotorDiameterM: 140},
	{ID: "T2", X: 500450, Y: 4649850, HubHeightM: 100, RotorDiameterM: 130},
}

// Demo lists the files of a demo project.
type Demo struct {
	Dir      string
	AOI      string
	Turbines string
	Project  string
}

// Load reads a run request from a YAML file. Relative project_dir and
// aoi_path values are resolved against the file's directory.
func Load(path string) (domain.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RunRequest{}, fmt.Errorf("read project: %w", err)
	}

	var req domain.RunRequest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return domain.RunRequest{}, fmt.Errorf("decode %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if req.ProjectDir == "" {
		req.ProjectDir = base
	}
	req.ProjectDir = resolve(base, req.ProjectDir)
	if req.AOIPath != "" {
		req.AOIPath = resolve(base, req.AOIPath)
	}
	return req, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Save writes req as YAML.
func Save(path string, req domain.RunRequest) error {
	data, err := yaml.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteDemo writes the demo AOI shapefile, turbines.csv and project.yaml into dir.
func WriteDemo(dir string) (Demo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Demo{}, err
	}
	aoi, err := shapefile.WriteDemoAOI(abs, shapefile.DemoStem)
	if err != nil {
		return Demo{}, err
	}

	demo := Demo{
		Dir:      abs,
		AOI:      aoi,
		Turbines: filepath.Join(abs, TurbinesFileName),
		Project:  filepath.Join(abs, FileName),
	}

	var csv strings.Builder
	csv.WriteString(domain.TurbineCSVHeader + "\n")
	for _, t := range DemoTurbines {
		fields := []string{t.ID, num(t.X), num(t.Y), num(t.HubHeightM), num(t.RotorDiameterM)}
		csv.WriteString(strings.Join(fields, ";") + "\n")
	}
	if err := os.WriteFile(demo.Turbines, []byte(csv.String()), 0o644); err != nil {
		return Demo{}, fmt.Errorf("write %s: %w", demo.Turbines, err)
	}

	req := domain.RunRequest{
		ProjectDir:           ".",
		AOIPath:              filepath.Base(aoi),
		ProjectEPSG:          DemoEPSG,
		MinSolarElevationDeg: 0,
		Year:                 domain.DefaultYear,
		Turbines:             DemoTurbines,
	}
	if err := Save(demo.Project, req); err != nil {
		return Demo{}, err
	}
	return demo, nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ResolveAOI returns the request's area of interest, reading the shapefile
// when aoi_path is set.
func ResolveAOI(req domain.RunRequest) (geo.MultiPolygon, error) {
	if req.AOIPath != "" {
		return shapefile.LoadAOI(req.AOIPath)
	}
	ring := make(geo.Ring, len(req.AOI))
	for i, v := range req.AOI {
		ring[i] = geo.Point{X: v[0], Y: v[1]}
	}
	return geo.MultiPolygon{{Outer: ring}}, nil
}
