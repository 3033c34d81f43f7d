// Package solar computes the apparent position of the sun for a place and time
// using the NOAA solar calculator equations (after Meeus, "Astronomical
// Algorithms"). Accuracy is about 0.01 degrees for dates between 1901 and 2099.
package solar

import (
	"math"
	"time"
)

// Position returns the sun's azimuth (degrees clockwise from north, in
// [0, 360)) and apparent elevation (degrees above the horizon, corrected for
// atmospheric refraction) at latitude lat and longitude lon (degrees, east
// positive) at instant t.
func Position(lat, lon float64, t time.Time) (azimuth, elevation float64) {
	t = t.UTC()
	jc := julianCentury(t)

	meanLong := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360)
	meanAnom := 357.52911 + jc*(35999.05029-0.0001537*jc)
	ecc := 0.016708634 - jc*(0.000042037+0.0000001267*jc)

	center := sinDeg(meanAnom)*(1.914602-jc*(0.004817+0.000014*jc)) +
		sinDeg(2*meanAnom)*(0.019993-0.000101*jc) +
		sinDeg(3*meanAnom)*0.000289
	omega := 125.04 - 1934.136*jc
	appLong := meanLong + center - 0.00569 - 0.00478*sinDeg(omega)

	meanObliq := 23 + (26+(21.448-jc*(46.815+jc*(0.00059-jc*0.001813)))/60)/60
	obliq := meanObliq + 0.00256*cosDeg(omega)
	decl := degrees(math.Asin(sinDeg(obliq) * sinDeg(appLong)))

	y := math.Pow(math.Tan(radians(obliq/2)), 2)
	eqTime := 4 * degrees(y*sinDeg(2*meanLong)-
		2*ecc*sinDeg(meanAnom)+
		4*ecc*y*sinDeg(meanAnom)*cosDeg(2*meanLong)-
		0.5*y*y*sinDeg(4*meanLong)-
		1.25*ecc*ecc*sinDeg(2*meanAnom))

	minutes := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60 + float64(t.Nanosecond())/6e10
	trueSolar := math.Mod(minutes+eqTime+4*lon, 1440)
	if trueSolar < 0 {
		trueSolar += 1440
	}
	hourAngle := trueSolar/4 - 180

	cosZenith := sinDeg(lat)*sinDeg(decl) + cosDeg(lat)*cosDeg(decl)*cosDeg(hourAngle)
	zenith := degrees(math.Acos(clamp(cosZenith)))

	azimuth = solarAzimuth(lat, decl, zenith, hourAngle)
	elevation = 90 - zenith
	return azimuth, elevation + refraction(elevation)
}

func julianCentury(t time.Time) float64 {
	jd := float64(t.UnixNano())/86400e9 + 2440587.5
	return (jd - 2451545) / 36525
}

func solarAzimuth(lat, decl, zenith, hourAngle float64) float64 {
	denom := cosDeg(lat) * sinDeg(zenith)
	if math.Abs(denom) < 1e-12 {
		// Sun at the zenith or observer at a pole; azimuth is undefined.
		return 180
	}
	a := degrees(math.Acos(clamp((sinDeg(lat)*cosDeg(zenith) - sinDeg(decl)) / denom)))
	if hourAngle > 0 {
		return math.Mod(a+180, 360)
	}
	return math.Mod(540-a, 360)
}

// refraction returns the atmospheric refraction correction in degrees for a
// geometric elevation in degrees.
func refraction(elevation float64) float64 {
	te := math.Tan(radians(elevation))
	var arcsec float64
	switch {
	case elevation > 85:
		return 0
	case elevation > 5:
		arcsec = 58.1/te - 0.07/math.Pow(te, 3) + 0.000086/math.Pow(te, 5)
	case elevation > -0.575:
		e := elevation
		arcsec = 1735 + e*(-518.2+e*(103.4+e*(-12.79+e*0.711)))
	default:
		arcsec = -20.772 / te
	}
	return arcsec / 3600
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func sinDeg(d float64) float64  { return math.Sin(radians(d)) }
func cosDeg(d float64) float64  { return math.Cos(radians(d)) }
func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
