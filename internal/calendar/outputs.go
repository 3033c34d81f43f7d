package calendar

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
)

// WriteHitsCSV writes the shadow calendar with a header row, one row per hit.
func WriteHitsCSV(path string, hits []domain.Hit) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := encodeHits(f, hits); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func encodeHits(w io.Writer, hits []domain.Hit) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(domain.HitCSVHeader); err != nil {
		return err
	}
	for _, h := range hits {
		row := []string{
			h.TurbineID,
			h.TimestampLocal,
			h.Date,
			h.Time,
			formatDeg(h.SunAzimuthDeg),
			formatDeg(h.SunElevationDeg),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatDeg writes the shortest decimal that round-trips, always with a
// fractional part ("180.0") and in exponent form below 1e-4 or from 1e16 up.
func formatDeg(v float64) string {
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ReadHitsCSV parses a shadow calendar written by WriteHitsCSV.
func ReadHitsCSV(path string) ([]domain.Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(bufio.NewReader(f))
	cr.FieldsPerRecord = len(domain.HitCSVHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	for i, col := range domain.HitCSVHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", path, i, header[i], col)
		}
	}

	var hits []domain.Hit
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		az, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: sun_azimuth_deg: %w", path, line, err)
		}
		el, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: sun_elevation_deg: %w", path, line, err)
		}
		hits = append(hits, domain.Hit{
			TurbineID:       rec[0],
			TimestampLocal:  rec[1],
			Date:            rec[2],
			Time:            rec[3],
			SunAzimuthDeg:   az,
			SunElevationDeg: el,
		})
	}
	return hits, nil
}

// WriteAnimation writes animation_data.json.
func WriteAnimation(path string, anim domain.AnimationData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := json.NewEncoder(bw).Encode(anim); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadAnimation loads animation_data.json.
func ReadAnimation(path string) (domain.AnimationData, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.AnimationData{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var anim domain.AnimationData
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&anim); err != nil {
		return domain.AnimationData{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if anim.Days == nil {
		anim.Days = make(map[string]*domain.AnimationDay)
	}
	return anim, nil
}
