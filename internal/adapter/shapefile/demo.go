package shapefile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
)

// DemoStem is the base name of the demo AOI files.
const DemoStem = "aoi_demo"

// UTM33NWKT is the .prj content for WGS 84 / UTM zone 33N (EPSG:32633).
const UTM33NWKT = `PROJCS["WGS 84 / UTM zone 33N",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",15],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",0],UNIT["metre",1]]`

// demoRing is the demo AOI rectangle in EPSG:32633, closed.
var demoRing = []shp.Point{
	{X: 500000, Y: 4649700},
	{X: 501100, Y: 4649700},
	{X: 501100, Y: 4650400},
	{X: 500000, Y: 4650400},
	{X: 500000, Y: 4649700},
}

// WriteDemoAOI writes the demo AOI as <dir>/<stem>.shp/.shx/.dbf/.prj and
// returns the .shp path. The single record carries ID=1.
func WriteDemoAOI(dir, stem string) (string, error) {
	if stem == "" {
		stem = DemoStem
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	base := filepath.Join(dir, stem)

	w, err := shp.Create(base+".shp", shp.POLYGON)
	if err != nil {
		return "", fmt.Errorf("create shapefile %s: %w", base, err)
	}
	if err := w.SetFields([]shp.Field{shp.NumberField("ID", 5)}); err != nil {
		w.Close()
		return "", fmt.Errorf("set dbf fields: %w", err)
	}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{demoRing}))
	row := w.Write(&poly)
	// Numeric dBASE fields are right-justified text; an int would be NUL padded.
	if err := w.WriteAttribute(int(row), 0, fmt.Sprintf("%5d", 1)); err != nil {
		w.Close()
		return "", fmt.Errorf("write ID attribute: %w", err)
	}
	w.Close()

	// go-shp v0.1.1 creates the table as "<base>dbf" without the dot.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return "", fmt.Errorf("move attribute table: %w", err)
	}
	if err := os.WriteFile(base+".prj", []byte(UTM33NWKT), 0o644); err != nil {
		return "", fmt.Errorf("write projection: %w", err)
	}
	return base + ".shp", nil
}
