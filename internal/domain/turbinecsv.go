package domain

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// TurbineCSVHeader is the expected first row of a turbine import file.
const TurbineCSVHeader = "id;x;y;hub_height_m;rotor_diameter_m"

// TurbineCSVTemplate is a minimal example of the import format.
const TurbineCSVTemplate = TurbineCSVHeader + "\nT1;500200;4649800;110;140"

var (
	lineBreakRe = regexp.MustCompile(`\r?\n`)
	decimalRe   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// ParseTurbineCSV reads a semicolon-delimited turbine file. The first row is
// skipped as the header and at most MaxTurbines records are returned.
//
// Parsing never fails on content: numeric columns that do not parse become
// NaN, empty columns become 0 and missing columns become NaN. Only read
// errors are returned.
func ParseTurbineCSV(r io.Reader) ([]Turbine, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read turbine csv: %w", err)
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	rows := lineBreakRe.Split(strings.TrimSpace(text), -1)
	if len(rows) <= 1 {
		return []Turbine{}, nil
	}

	rows = rows[1:]
	if len(rows) > MaxTurbines {
		rows = rows[:MaxTurbines]
	}

	turbines := make([]Turbine, 0, len(rows))
	for _, row := range rows {
		turbines = append(turbines, parseTurbineRow(row))
	}
	return turbines, nil
}

func parseTurbineRow(row string) Turbine {
	cols := strings.Split(row, ";")
	col := func(i int) (string, bool) {
		if i >= len(cols) {
			return "", false
		}
		return cols[i], true
	}

	id, _ := col(0)
	return Turbine{
		ID:             id,
		X:              parseNumber(col(1)),
		Y:              parseNumber(col(2)),
		HubHeightM:     parseNumber(col(3)),
		RotorDiameterM: parseNumber(col(4)),
	}
}

// parseNumber converts a column to float64 with the rules of a JavaScript
// numeric string: a missing column or malformed text yields NaN, blank text
// yields 0. Unsigned 0x, 0o and 0b integers and the exact spellings
// Infinity, +Infinity and -Infinity are accepted; inf, nan and hex floats
// are not.
func parseNumber(s string, present bool) float64 {
	if !present {
		return math.NaN()
	}
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		if base, ok := radixBases[s[1]]; ok {
			return parseRadix(s[2:], base)
		}
	}
	if !decimalRe.MatchString(s) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return v
}

var radixBases = map[byte]int{'x': 16, 'X': 16, 'o': 8, 'O': 8, 'b': 2, 'B': 2}

func parseRadix(digits string, base int) float64 {
	if strings.ContainsAny(digits, "_+-") {
		return math.NaN()
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return math.NaN()
	}
	v, _ := new(big.Float).SetInt(n).Float64()
	return v
}
