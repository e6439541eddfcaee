package features

import (
	"strconv"
	"strings"
)

type Soil int

const (
	SoilDry Soil = iota
	SoilOK
	SoilWet
)

type Water int

const (
	WaterLow Water = iota
	WaterMed
	WaterHigh
)

var soilAliases = map[string]Soil{
	"sucha": SoilDry, "dry": SoilDry,
	"ok": SoilOK, "umiarkowana": SoilOK, "wilgotna": SoilOK, "normalna": SoilOK,
	"lekko wilgotna": SoilOK, "moist": SoilOK,
	"mokra": SoilWet, "wet": SoilWet, "przelana": SoilWet,
}

var waterAliases = map[string]Water{
	"low": WaterLow, "mało": WaterLow, "malo": WaterLow, "niska": WaterLow,
	"med": WaterMed, "medium": WaterMed, "średnio": WaterMed, "srednio": WaterMed, "normalna": WaterMed,
	"high": WaterHigh, "dużo": WaterHigh, "duzo": WaterHigh, "wysoka": WaterHigh,
}

// SoilState normalizes free-text or numeric (0/1/2) soil moisture input.
func SoilState(raw string) (Soil, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	if v, ok := soilAliases[s]; ok {
		return v, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	switch f {
	case 0:
		return SoilDry, true
	case 1:
		return SoilOK, true
	case 2:
		return SoilWet, true
	}
	return 0, false
}

// WaterCategory maps a category alias or a volume in ml (<100 low, <300 med, else high).
func WaterCategory(raw string) (Water, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	if v, ok := waterAliases[s]; ok {
		return v, true
	}
	ml, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	switch {
	case ml < 100:
		return WaterLow, true
	case ml < 300:
		return WaterMed, true
	default:
		return WaterHigh, true
	}
}

// Season buckets a month: 1 winter, 2 spring, 3 summer, 4 autumn.
func Season(month int) int {
	return (month%12 + 3) / 3
}

func soilOneHot(raw string, row Row) {
	row[ColSoilDry], row[ColSoilOK], row[ColSoilWet] = 0, 0, 0
	s, ok := SoilState(raw)
	if !ok {
		return
	}
	switch s {
	case SoilDry:
		row[ColSoilDry] = 1
	case SoilOK:
		row[ColSoilOK] = 1
	case SoilWet:
		row[ColSoilWet] = 1
	}
}

func waterOneHot(raw string, row Row) {
	row[ColWaterLow], row[ColWaterMed], row[ColWaterHigh] = 0, 0, 0
	w, ok := WaterCategory(raw)
	if !ok {
		return
	}
	switch w {
	case WaterLow:
		row[ColWaterLow] = 1
	case WaterMed:
		row[ColWaterMed] = 1
	case WaterHigh:
		row[ColWaterHigh] = 1
	}
}
