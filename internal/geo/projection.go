// Package geo converts project coordinates to geographic coordinates and
// tests planar polygons for intersection.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedEPSG is returned for reference systems the engine cannot project.
var ErrUnsupportedEPSG = errors.New("unsupported EPSG code")

// Transformer converts between a projected reference system and WGS 84 latitude/longitude.
type Transformer interface {
	ToLatLon(x, y float64) (lat, lon float64)
	FromLatLon(lat, lon float64) (x, y float64)
	EPSG() int
}

// NewTransformer returns the transformer for an EPSG code. Supported:
//   - 4326: WGS 84 geographic, x is longitude and y latitude
//   - 3857: spherical web mercator
//   - 32601..32660, 32701..32760: WGS 84 / UTM north and south
//   - 25828..25838: ETRS89 / UTM north (GRS80)
func NewTransformer(epsg int) (Transformer, error) {
	switch {
	case epsg == 4326:
		return identity{}, nil
	case epsg == 3857:
		return webMercator{}, nil
	case epsg >= 32601 && epsg <= 32660:
		return newUTM(epsg, epsg-32600, false, wgs84), nil
	case epsg >= 32701 && epsg <= 32760:
		return newUTM(epsg, epsg-32700, true, wgs84), nil
	case epsg >= 25828 && epsg <= 25838:
		return newUTM(epsg, epsg-25800, false, grs80), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEPSG, epsg)
	}
}

type identity struct{}

func (identity) ToLatLon(x, y float64) (float64, float64)     { return y, x }
func (identity) FromLatLon(lat, lon float64) (float64, float64) { return lon, lat }
func (identity) EPSG() int                                      { return 4326 }

const webMercatorRadius = 6378137.0

type webMercator struct{}

func (webMercator) ToLatLon(x, y float64) (float64, float64) {
	lon := x / webMercatorRadius
	lat := 2*math.Atan(math.Exp(y/webMercatorRadius)) - math.Pi/2
	return degrees(lat), degrees(lon)
}

func (webMercator) FromLatLon(lat, lon float64) (float64, float64) {
	x := webMercatorRadius * radians(lon)
	y := webMercatorRadius * math.Log(math.Tan(math.Pi/4+radians(lat)/2))
	return x, y
}

func (webMercator) EPSG() int { return 3857 }

type ellipsoid struct {
	a float64 // semi-major axis, metres
	f float64 // flattening
}

var (
	wgs84 = ellipsoid{a: 6378137.0, f: 1 / 298.257223563}
	grs80 = ellipsoid{a: 6378137.0, f: 1 / 298.257222101}
)

const (
	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0
)

// utm implements transverse mercator with the Krüger series to fourth
// order in n, accurate to well under a millimetre within a zone.
type utm struct {
	epsg      int
	lon0      float64 // central meridian, radians
	northing0 float64
	e         float64 // first eccentricity
	scaleA    float64 // k0 * A, the meridian arc scale
	alpha     [4]float64
	beta      [4]float64
	delta     [4]float64
}

func newUTM(epsg, zone int, south bool, ell ellipsoid) *utm {
	n := ell.f / (2 - ell.f)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n
	rectifying := ell.a / (1 + n) * (1 + n2/4 + n4/64)

	u := &utm{
		epsg:   epsg,
		lon0:   radians(float64(zone*6 - 183)),
		e:      math.Sqrt(ell.f * (2 - ell.f)),
		scaleA: utmScale * rectifying,
		alpha: [4]float64{
			n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180,
			13*n2/48 - 3*n3/5 + 557*n4/1440,
			61*n3/240 - 103*n4/140,
			49561 * n4 / 161280,
		},
		beta: [4]float64{
			n/2 - 2*n2/3 + 37*n3/96 - n4/360,
			n2/48 + n3/15 - 437*n4/1440,
			17*n3/480 - 37*n4/840,
			4397 * n4 / 161280,
		},
		delta: [4]float64{
			2*n - 2*n2/3 - 2*n3 + 116*n4/45,
			7*n2/3 - 8*n3/5 - 227*n4/45,
			56*n3/15 - 136*n4/35,
			4279 * n4 / 630,
		},
	}
	if south {
		u.northing0 = utmFalseNorthing
	}
	return u
}

func (u *utm) EPSG() int { return u.epsg }

func (u *utm) ToLatLon(x, y float64) (float64, float64) {
	xi := (y - u.northing0) / u.scaleA
	eta := (x - utmFalseEasting) / u.scaleA

	xiP, etaP := xi, eta
	for j := 1; j <= 4; j++ {
		b := u.beta[j-1]
		k := 2 * float64(j)
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	lat := chi
	for j := 1; j <= 4; j++ {
		lat += u.delta[j-1] * math.Sin(2*float64(j)*chi)
	}
	lon := u.lon0 + math.Atan2(math.Sinh(etaP), math.Cos(xiP))
	return degrees(lat), degrees(lon)
}

func (u *utm) FromLatLon(lat, lon float64) (float64, float64) {
	phi := radians(lat)
	dLon := radians(lon) - u.lon0

	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - u.e*math.Atanh(u.e*sinPhi))
	xiP := math.Atan2(t, math.Cos(dLon))
	etaP := math.Atanh(math.Sin(dLon) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j := 1; j <= 4; j++ {
		a := u.alpha[j-1]
		k := 2 * float64(j)
		xi += a * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += a * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}
	return utmFalseEasting + u.scaleA*eta, u.northing0 + u.scaleA*xi
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
