package analysis

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-odds/internal/models"
)

func TestEncodeResult_Deterministic(t *testing.T) {
	rows := tempRows(10, 12, 35, 11, 13)
	payload := models.AnalyzeResult{
		OK:             true,
		Location:       &models.Location{Lat: 19.43, Lon: -99.13},
		TargetDay:      &models.TargetDay{Month: 5, Day: 10, HalfWindowDays: 10},
		Years:          &models.YearSpan{Start: 1990, End: 1994, Count: 5},
		PowerVariables: []models.Variable{models.VarTemperature},
		Factors:        []models.Factor{models.FactorTemperature},
		Results:        Analyze(rows, []models.Factor{models.FactorTemperature}, 10),
	}

	first, firstHash, err := EncodeResult(payload)
	require.NoError(t, err)
	second, secondHash, err := EncodeResult(payload)
	require.NoError(t, err)

	// Identical inputs must produce byte-identical encodings, so the hash
	// can serve as an idempotency key.
	assert.Equal(t, first, second)
	assert.Equal(t, firstHash, secondHash)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), firstHash)
}

func TestEncodeResult_DistinguishesPayloads(t *testing.T) {
	a := models.AnalyzeResult{OK: false, Message: "no data from upstream"}
	b := models.AnalyzeResult{OK: false, Message: "no data from upstream "}

	_, hashA, err := EncodeResult(a)
	require.NoError(t, err)
	_, hashB, err := EncodeResult(b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}
