package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
)

func TestWriteDemo(t *testing.T) {
	dir := t.TempDir()
	demo, err := WriteDemo(dir)
	require.NoError(t, err)

	for _, p := range []string{demo.AOI, demo.Turbines, demo.Project} {
		_, err := os.Stat(p)
		require.NoError(t, err, p)
	}
	assert.Equal(t, filepath.Join(dir, "aoi_demo.shp"), demo.AOI)

	f, err := os.Open(demo.Turbines)
	require.NoError(t, err)
	defer f.Close()
	turbines, err := domain.ParseTurbineCSV(f)
	require.NoError(t, err)
	if diff := cmp.Diff(DemoTurbines, turbines); diff != "" {
		t.Errorf("turbines mismatch (-want +got):\n%s", diff)
	}

	req, err := Load(demo.Project)
	require.NoError(t, err)
	require.NoError(t, req.Validate())
	assert.Equal(t, dir, req.ProjectDir)
	assert.Equal(t, demo.AOI, req.AOIPath)
	assert.Equal(t, DemoEPSG, req.ProjectEPSG)
	assert.Zero(t, req.MinSolarElevationDeg)

	aoi, err := ResolveAOI(req)
	require.NoError(t, err)
	require.Len(t, aoi, 1)
	b := aoi.Bounds()
	assert.InDelta(t, 500000, b.MinX, 0)
	assert.InDelta(t, 4650400, b.MaxY, 0)
}

func TestLoad_InlineAOIAndAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	content := strings.Join([]string{
		"project_dir: /srv/projects/site",
		"project_epsg: 32633",
		"aoi:",
		"  - [0, 0]",
		"  - [10, 0]",
		"  - [10, 10]",
		"turbines:",
		"  - {id: T1, x: 1, y: 2, hub_height_m: 100, rotor_diameter_m: 120}",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	req, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/projects/site", req.ProjectDir)
	assert.Equal(t, 0, req.Year)
	require.Len(t, req.Turbines, 1)

	aoi, err := ResolveAOI(req)
	require.NoError(t, err)
	assert.Len(t, aoi[0].Outer, 3)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project_epsg: 32633\nturbine_count: 3\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turbine_count")
}
