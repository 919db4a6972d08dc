// Package analysis turns a concatenated multi-year daily dataset into
// per-factor summaries, percentile bands, and qualitative labels.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"climate-odds/internal/models"
)

// WetThresholdMM is the fixed daily precipitation threshold above which a
// day counts as wet.
const WetThresholdMM = 1.0

// Analyze computes one FactorResult per requested factor. The per-year
// reduction takes the median of each variable's raw days, so years with more
// sampled days do not outweigh the others. Precipitation pools raw days
// across all years instead. The output is deterministic: identical input
// yields byte-identical encodings.
func Analyze(rows []models.DailyObservation, factors []models.Factor, halfWindowDays int) map[models.Factor]models.FactorResult {
	perYear := reduceByYear(rows)
	nYears := len(perYear)

	results := make(map[models.Factor]models.FactorResult, len(factors))
	for _, f := range factors {
		switch f {
		case models.FactorTemperature:
			results[f] = twoSidedResult(f, perYear.series(models.VarTemperature), nYears, 2,
				models.LabelVeryCold, models.LabelVeryHot, models.LabelNormal)
		case models.FactorWindspeed:
			results[f] = oneSidedResult(f, perYear.series(models.VarWindspeed), nYears, 2, models.LabelVeryWindy)
		case models.FactorHumidity:
			results[f] = oneSidedResult(f, perYear.series(models.VarHumidity), nYears, 1, models.LabelVeryWetHumidity)
		case models.FactorPrecipitation:
			results[f] = precipitationResult(rows, nYears, halfWindowDays)
		case models.FactorComfort:
			results[f] = twoSidedResult(f, perYear.heatIndexSeries(), nYears, 2,
				models.LabelUncomfortableCold, models.LabelUncomfortableHot, models.LabelComfortNormal)
		}
	}

	return results
}

// yearTable maps year -> variable -> per-year median.
type yearTable map[int]map[models.Variable]float64

// reduceByYear groups rows by year and takes the median of each variable's
// non-null values. A year appears even if every cell was null; a variable is
// absent from a year's map when that year had no usable value for it.
func reduceByYear(rows []models.DailyObservation) yearTable {
	raw := make(map[int]map[models.Variable][]float64)
	for _, row := range rows {
		byVar, ok := raw[row.Year]
		if !ok {
			byVar = make(map[models.Variable][]float64)
			raw[row.Year] = byVar
		}
		for v, val := range row.Values {
			if val != nil {
				byVar[v] = append(byVar[v], *val)
			}
		}
	}

	table := make(yearTable, len(raw))
	for year, byVar := range raw {
		medians := make(map[models.Variable]float64, len(byVar))
		for v, vals := range byVar {
			if m, ok := median(vals); ok {
				medians[v] = m
			}
		}
		table[year] = medians
	}

	return table
}

// series collects the per-year medians of one variable, ordered by year.
func (t yearTable) series(v models.Variable) []float64 {
	years := t.sortedYears()
	out := make([]float64, 0, len(years))
	for _, y := range years {
		if m, ok := t[y][v]; ok {
			out = append(out, m)
		}
	}
	return out
}

// heatIndexSeries derives the simplified heat index per year, for years
// carrying both a temperature and a humidity median.
func (t yearTable) heatIndexSeries() []float64 {
	years := t.sortedYears()
	out := make([]float64, 0, len(years))
	for _, y := range years {
		temp, okT := t[y][models.VarTemperature]
		rh, okH := t[y][models.VarHumidity]
		if okT && okH {
			out = append(out, heatIndex(temp, rh))
		}
	}
	return out
}

func (t yearTable) sortedYears() []int {
	years := make([]int, 0, len(t))
	for y := range t {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// heatIndex is a linear comfort approximation: HI = T + 0.2*(RH-40)/10.
func heatIndex(tempC, rhPct float64) float64 {
	return round(tempC+0.2*(rhPct-40)/10.0, 2)
}

// twoSidedResult classifies the typical value against the p10/p90 band.
func twoSidedResult(f models.Factor, series []float64, nYears, precision int, lowLabel, highLabel, midLabel string) models.FactorResult {
	res := models.FactorResult{
		Units:       models.FactorUnits[f],
		NYears:      nYears,
		Percentiles: percentileMap(series, 10, 90),
		Label:       models.LabelInsufficientData,
	}

	typical, ok := median(series)
	if !ok {
		return res
	}
	typical = round(typical, precision)
	res.Typical = &typical

	p10, ok10 := res.Percentiles["p10"]
	p90, ok90 := res.Percentiles["p90"]
	if !ok10 || !ok90 {
		return res
	}

	switch {
	case typical <= p10:
		res.Label = lowLabel
	case typical >= p90:
		res.Label = highLabel
	default:
		res.Label = midLabel
	}
	return res
}

// oneSidedResult classifies the typical value against p90 only.
func oneSidedResult(f models.Factor, series []float64, nYears, precision int, highLabel string) models.FactorResult {
	res := models.FactorResult{
		Units:       models.FactorUnits[f],
		NYears:      nYears,
		Percentiles: percentileMap(series, 90),
		Label:       models.LabelInsufficientData,
	}

	typical, ok := median(series)
	if !ok {
		return res
	}
	typical = round(typical, precision)
	res.Typical = &typical

	p90, ok90 := res.Percentiles["p90"]
	if !ok90 {
		return res
	}

	if typical >= p90 {
		res.Label = highLabel
	} else {
		res.Label = models.LabelNormal
	}
	return res
}

// precipitationResult works on raw daily rows pooled across all years and
// window days, not per-year medians. A day is wet when its value reaches
// WetThresholdMM; intensity percentiles are taken over wet days only.
func precipitationResult(rows []models.DailyObservation, nYears, halfWindowDays int) models.FactorResult {
	var values []float64
	for _, row := range rows {
		if v := row.Value(models.VarPrecipitation); v != nil {
			values = append(values, *v)
		}
	}

	nDays := len(values)
	threshold := WetThresholdMM

	res := models.FactorResult{
		Units:          models.FactorUnits[models.FactorPrecipitation],
		NYears:         nYears,
		Label:          models.LabelInsufficientData,
		WindowDays:     &halfWindowDays,
		NDaysTotal:     &nDays,
		WetThresholdMM: &threshold,
	}

	if nDays == 0 {
		// Probability of a wet day is undefined, not zero.
		return res
	}

	var wet []float64
	for _, v := range values {
		if v >= threshold {
			wet = append(wet, v)
		}
	}

	probWet := round(float64(len(wet))/float64(nDays), 3)
	res.ProbWetDay = &probWet
	res.IntensityPercentiles = percentileMap(wet, 50, 90)

	wetMedian, ok := median(wet)
	if ok && wetMedian >= res.IntensityPercentiles["p90"] {
		res.Label = models.LabelVeryWetRain
	} else {
		res.Label = models.LabelNormal
	}
	return res
}

// percentileMap computes the requested percentiles over the sample, rounded
// to 3 decimals. An empty sample yields an empty map, never NaN entries.
func percentileMap(sample []float64, qs ...float64) map[string]float64 {
	out := make(map[string]float64, len(qs))
	if len(sample) == 0 {
		return out
	}

	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)

	for _, q := range qs {
		out[fmt.Sprintf("p%d", int(q))] = round(percentile(sorted, q), 3)
	}
	return out
}

// percentile computes the q-th percentile of an already sorted sample using
// linear interpolation between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	pos := q / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// median returns the sample median, false for an empty sample.
func median(sample []float64) (float64, bool) {
	if len(sample) == 0 {
		return 0, false
	}

	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
