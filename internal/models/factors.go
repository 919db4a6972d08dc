package models

import "sort"

// Factor is a climate dimension a caller can request for analysis.
type Factor string

const (
	FactorTemperature   Factor = "temperature"
	FactorPrecipitation Factor = "precipitation"
	FactorWindspeed     Factor = "windspeed"
	FactorHumidity      Factor = "humidity"
	FactorComfort       Factor = "comfort"
)

// KnownFactors is the closed set of factors the engine understands.
var KnownFactors = map[Factor]bool{
	FactorTemperature:   true,
	FactorPrecipitation: true,
	FactorWindspeed:     true,
	FactorHumidity:      true,
	FactorComfort:       true,
}

// FactorUnits maps each factor to the units of its reported values.
var FactorUnits = map[Factor]string{
	FactorTemperature:   "°C",
	FactorPrecipitation: "mm/day",
	FactorWindspeed:     "m/s",
	FactorHumidity:      "%",
	FactorComfort:       "°C (HI)",
}

// Variable is an upstream daily variable name (NASA POWER parameter).
// The decoder only accepts variables from this closed set; unknown keys
// in upstream payloads are dropped.
type Variable string

const (
	VarTemperature   Variable = "T2M"
	VarPrecipitation Variable = "PRECTOTCORR"
	VarWindspeed     Variable = "WS10M"
	VarHumidity      Variable = "RH2M"
)

// factorVariables maps each factor to the raw upstream variables it needs.
// Comfort is derived, not fetched: it needs both temperature and humidity.
var factorVariables = map[Factor][]Variable{
	FactorTemperature:   {VarTemperature},
	FactorPrecipitation: {VarPrecipitation},
	FactorWindspeed:     {VarWindspeed},
	FactorHumidity:      {VarHumidity},
	FactorComfort:       {VarTemperature, VarHumidity},
}

// VariablesForFactors resolves the minimal upstream variable set needed to
// analyze the given factors. The result is deduplicated and sorted so the
// upstream query string is stable for identical requests.
func VariablesForFactors(factors []Factor) []Variable {
	seen := make(map[Variable]bool)
	for _, f := range factors {
		for _, v := range factorVariables[f] {
			seen[v] = true
		}
	}

	vars := make([]Variable, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	return vars
}

// Classification labels produced by the analysis engine.
const (
	LabelInsufficientData  = "insufficient-data"
	LabelNormal            = "normal"
	LabelVeryCold          = "very cold"
	LabelVeryHot           = "very hot"
	LabelVeryWindy         = "very windy"
	LabelVeryWetHumidity   = "very wet (humidity)"
	LabelVeryWetRain       = "very wet (rain)"
	LabelComfortNormal     = "comfortable/normal"
	LabelUncomfortableCold = "very uncomfortable (cold)"
	LabelUncomfortableHot  = "very uncomfortable (hot)"
)
