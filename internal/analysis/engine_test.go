package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-odds/internal/models"
)

func fp(v float64) *float64 { return &v }

// obs builds a single-day observation for a year. The date itself is
// irrelevant to the engine; only the year tag and the values matter.
func obs(year, day int, values map[models.Variable]*float64) models.DailyObservation {
	return models.DailyObservation{
		Date:   time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Year:   year,
		Values: values,
	}
}

// tempRows spreads one temperature value per year.
func tempRows(values ...float64) []models.DailyObservation {
	rows := make([]models.DailyObservation, 0, len(values))
	for i, v := range values {
		rows = append(rows, obs(1990+i, 0, map[models.Variable]*float64{models.VarTemperature: fp(v)}))
	}
	return rows
}

func TestAnalyze_TemperatureTwoSided(t *testing.T) {
	rows := tempRows(10, 12, 35, 11, 13)

	results := Analyze(rows, []models.Factor{models.FactorTemperature}, 10)
	res, ok := results[models.FactorTemperature]
	require.True(t, ok)

	assert.Equal(t, "°C", res.Units)
	assert.Equal(t, 5, res.NYears)
	require.NotNil(t, res.Typical)
	assert.Equal(t, 12.0, *res.Typical)

	// Linear interpolation over sorted [10 11 12 13 35]:
	// p10 sits 0.4 of the way from 10 to 11, p90 0.6 from 13 to 35.
	assert.Equal(t, 10.4, res.Percentiles["p10"])
	assert.Equal(t, 26.2, res.Percentiles["p90"])
	assert.Equal(t, models.LabelNormal, res.Label)
}

func TestAnalyze_TemperatureLabels(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"typical at p10 is very cold", []float64{10, 10, 10, 10, 30}, models.LabelVeryCold},
		{"typical at p90 is very hot", []float64{10, 11, 30, 30, 30}, models.LabelVeryHot},
		{"typical inside the band is normal", []float64{10, 12, 35, 11, 13}, models.LabelNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Analyze(tempRows(tt.values...), []models.Factor{models.FactorTemperature}, 10)
			assert.Equal(t, tt.want, results[models.FactorTemperature].Label)
		})
	}
}

func TestAnalyze_PerYearMedianWeighting(t *testing.T) {
	// 1990 samples three days, 1991 one day. The per-year reduction must
	// keep the years on equal footing: series is [10 20], typical 15.
	rows := []models.DailyObservation{
		obs(1990, 0, map[models.Variable]*float64{models.VarTemperature: fp(10)}),
		obs(1990, 1, map[models.Variable]*float64{models.VarTemperature: fp(10)}),
		obs(1990, 2, map[models.Variable]*float64{models.VarTemperature: fp(10)}),
		obs(1991, 0, map[models.Variable]*float64{models.VarTemperature: fp(20)}),
	}

	results := Analyze(rows, []models.Factor{models.FactorTemperature}, 1)
	res := results[models.FactorTemperature]

	assert.Equal(t, 2, res.NYears)
	require.NotNil(t, res.Typical)
	assert.Equal(t, 15.0, *res.Typical)
}

func TestAnalyze_NullCellsDroppedWithinYear(t *testing.T) {
	rows := []models.DailyObservation{
		obs(1990, 0, map[models.Variable]*float64{models.VarTemperature: fp(10)}),
		obs(1990, 1, map[models.Variable]*float64{models.VarTemperature: nil}),
		obs(1990, 2, map[models.Variable]*float64{models.VarTemperature: fp(20)}),
	}

	results := Analyze(rows, []models.Factor{models.FactorTemperature}, 1)
	res := results[models.FactorTemperature]

	require.NotNil(t, res.Typical)
	assert.Equal(t, 15.0, *res.Typical)
}

func TestAnalyze_InsufficientData(t *testing.T) {
	// Years are present but every temperature cell is null: the year count
	// is still reported, the sample is empty.
	rows := []models.DailyObservation{
		obs(1990, 0, map[models.Variable]*float64{models.VarTemperature: nil}),
		obs(1991, 0, map[models.Variable]*float64{models.VarTemperature: nil}),
	}

	results := Analyze(rows, []models.Factor{models.FactorTemperature}, 1)
	res := results[models.FactorTemperature]

	assert.Equal(t, models.LabelInsufficientData, res.Label)
	assert.Nil(t, res.Typical)
	assert.Empty(t, res.Percentiles)
	assert.Equal(t, 2, res.NYears)
}

func TestAnalyze_WindspeedOneSided(t *testing.T) {
	t.Run("below p90 is normal", func(t *testing.T) {
		rows := make([]models.DailyObservation, 0, 5)
		for i, v := range []float64{2, 3, 4, 5, 6} {
			rows = append(rows, obs(1990+i, 0, map[models.Variable]*float64{models.VarWindspeed: fp(v)}))
		}

		results := Analyze(rows, []models.Factor{models.FactorWindspeed}, 10)
		res := results[models.FactorWindspeed]

		require.NotNil(t, res.Typical)
		assert.Equal(t, 4.0, *res.Typical)
		assert.Equal(t, 5.6, res.Percentiles["p90"])
		assert.NotContains(t, res.Percentiles, "p10")
		assert.Equal(t, models.LabelNormal, res.Label)
	})

	t.Run("typical reaching p90 is very windy", func(t *testing.T) {
		rows := []models.DailyObservation{
			obs(1990, 0, map[models.Variable]*float64{models.VarWindspeed: fp(5)}),
			obs(1991, 0, map[models.Variable]*float64{models.VarWindspeed: fp(5)}),
			obs(1992, 0, map[models.Variable]*float64{models.VarWindspeed: fp(5)}),
		}

		results := Analyze(rows, []models.Factor{models.FactorWindspeed}, 10)
		assert.Equal(t, models.LabelVeryWindy, results[models.FactorWindspeed].Label)
	})
}

func TestAnalyze_HumidityRounding(t *testing.T) {
	// Humidity typical rounds to one decimal while percentiles keep three,
	// so a single-year 55.37 reads typical 55.4 against p90 55.37 and tips
	// over the one-sided threshold.
	rows := []models.DailyObservation{
		obs(1990, 0, map[models.Variable]*float64{models.VarHumidity: fp(55.37)}),
	}

	results := Analyze(rows, []models.Factor{models.FactorHumidity}, 10)
	res := results[models.FactorHumidity]

	require.NotNil(t, res.Typical)
	assert.Equal(t, 55.4, *res.Typical)
	assert.Equal(t, 55.37, res.Percentiles["p90"])
	assert.Equal(t, models.LabelVeryWetHumidity, res.Label)
}

func TestAnalyze_PrecipitationPoolsRawDays(t *testing.T) {
	rows := make([]models.DailyObservation, 0, 5)
	for i, v := range []float64{0, 0.2, 1.5, 3, 0} {
		rows = append(rows, obs(1990, i, map[models.Variable]*float64{models.VarPrecipitation: fp(v)}))
	}

	results := Analyze(rows, []models.Factor{models.FactorPrecipitation}, 2)
	res := results[models.FactorPrecipitation]

	assert.Equal(t, "mm/day", res.Units)
	require.NotNil(t, res.WindowDays)
	assert.Equal(t, 2, *res.WindowDays)
	require.NotNil(t, res.NDaysTotal)
	assert.Equal(t, 5, *res.NDaysTotal)
	require.NotNil(t, res.WetThresholdMM)
	assert.Equal(t, 1.0, *res.WetThresholdMM)

	// Two of five days reach the wet threshold.
	require.NotNil(t, res.ProbWetDay)
	assert.Equal(t, 0.4, *res.ProbWetDay)

	// Intensity over the wet subset [1.5 3].
	assert.Equal(t, 2.25, res.IntensityPercentiles["p50"])
	assert.Equal(t, 2.85, res.IntensityPercentiles["p90"])
	assert.Equal(t, models.LabelNormal, res.Label)
}

func TestAnalyze_PrecipitationVeryWet(t *testing.T) {
	// Identical wet intensities collapse the p90 onto the wet median.
	rows := make([]models.DailyObservation, 0, 4)
	for i, v := range []float64{2, 2, 2, 0} {
		rows = append(rows, obs(1990, i, map[models.Variable]*float64{models.VarPrecipitation: fp(v)}))
	}

	results := Analyze(rows, []models.Factor{models.FactorPrecipitation}, 1)
	res := results[models.FactorPrecipitation]

	require.NotNil(t, res.ProbWetDay)
	assert.Equal(t, 0.75, *res.ProbWetDay)
	assert.Equal(t, models.LabelVeryWetRain, res.Label)
}

func TestAnalyze_PrecipitationNoWetDays(t *testing.T) {
	// Dry days exist, so the probability is a real zero and the label is
	// normal; only the wet-intensity percentiles are absent.
	rows := make([]models.DailyObservation, 0, 3)
	for i, v := range []float64{0, 0.3, 0.9} {
		rows = append(rows, obs(1990, i, map[models.Variable]*float64{models.VarPrecipitation: fp(v)}))
	}

	results := Analyze(rows, []models.Factor{models.FactorPrecipitation}, 1)
	res := results[models.FactorPrecipitation]

	require.NotNil(t, res.ProbWetDay)
	assert.Equal(t, 0.0, *res.ProbWetDay)
	assert.Empty(t, res.IntensityPercentiles)
	assert.Equal(t, models.LabelNormal, res.Label)
}

func TestAnalyze_PrecipitationNoDays(t *testing.T) {
	rows := []models.DailyObservation{
		obs(1990, 0, map[models.Variable]*float64{models.VarPrecipitation: nil}),
	}

	results := Analyze(rows, []models.Factor{models.FactorPrecipitation}, 1)
	res := results[models.FactorPrecipitation]

	assert.Equal(t, models.LabelInsufficientData, res.Label)
	assert.Nil(t, res.ProbWetDay)
	require.NotNil(t, res.NDaysTotal)
	assert.Equal(t, 0, *res.NDaysTotal)
}

func TestAnalyze_ComfortHeatIndex(t *testing.T) {
	rows := []models.DailyObservation{
		obs(2001, 0, map[models.Variable]*float64{models.VarTemperature: fp(20), models.VarHumidity: fp(50)}),
		obs(2002, 0, map[models.Variable]*float64{models.VarTemperature: fp(30), models.VarHumidity: fp(80)}),
		obs(2003, 0, map[models.Variable]*float64{models.VarTemperature: fp(25), models.VarHumidity: fp(40)}),
	}

	results := Analyze(rows, []models.Factor{models.FactorComfort}, 10)
	res := results[models.FactorComfort]

	// HI per year: 20.2, 30.8, 25.0.
	require.NotNil(t, res.Typical)
	assert.Equal(t, 25.0, *res.Typical)
	assert.Equal(t, 21.16, res.Percentiles["p10"])
	assert.Equal(t, 29.64, res.Percentiles["p90"])
	assert.Equal(t, models.LabelComfortNormal, res.Label)
}

func TestAnalyze_ComfortNeedsBothVariables(t *testing.T) {
	// A year missing humidity contributes nothing to the comfort series.
	rows := []models.DailyObservation{
		obs(2001, 0, map[models.Variable]*float64{models.VarTemperature: fp(20), models.VarHumidity: fp(50)}),
		obs(2002, 0, map[models.Variable]*float64{models.VarTemperature: fp(30)}),
	}

	results := Analyze(rows, []models.Factor{models.FactorComfort}, 10)
	res := results[models.FactorComfort]

	require.NotNil(t, res.Typical)
	assert.Equal(t, 20.2, *res.Typical)
	assert.Equal(t, 2, res.NYears)
}

func TestHeatIndex(t *testing.T) {
	assert.Equal(t, 25.0, heatIndex(25, 40))
	assert.Equal(t, 30.8, heatIndex(30, 80))
	assert.Equal(t, 19.4, heatIndex(20, 10))
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 11, 12, 13, 35}

	assert.InDelta(t, 10.4, percentile(sorted, 10), 1e-9)
	assert.Equal(t, 12.0, percentile(sorted, 50))
	assert.InDelta(t, 26.2, percentile(sorted, 90), 1e-9)
	assert.Equal(t, 35.0, percentile(sorted, 100))
	assert.Equal(t, 7.5, percentile([]float64{7.5}, 90))
}

func TestMedian(t *testing.T) {
	_, ok := median(nil)
	assert.False(t, ok)

	m, ok := median([]float64{3, 1, 2})
	assert.True(t, ok)
	assert.Equal(t, 2.0, m)

	m, ok = median([]float64{4, 1, 3, 2})
	assert.True(t, ok)
	assert.Equal(t, 2.5, m)
}
