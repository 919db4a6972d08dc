package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func validRequest() AnalyzeRequest {
	return AnalyzeRequest{
		Latitude:       19.43,
		Longitude:      -99.13,
		Month:          5,
		Day:            10,
		StartYear:      2000,
		EndYear:        2020,
		HalfWindowDays: 5,
		Factors:        []Factor{FactorTemperature, FactorHumidity},
	}
}

// TestAnalyzeRequest_Validate covers the synchronous rejection rules: a
// request failing any of them produces a ValidationError before any job row
// can exist.
func TestAnalyzeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AnalyzeRequest)
		wantErr bool
	}{
		{
			name:    "valid request",
			mutate:  func(r *AnalyzeRequest) {},
			wantErr: false,
		},
		{
			name:    "latitude above range",
			mutate:  func(r *AnalyzeRequest) { r.Latitude = 90.5 },
			wantErr: true,
		},
		{
			name:    "longitude below range",
			mutate:  func(r *AnalyzeRequest) { r.Longitude = -180.5 },
			wantErr: true,
		},
		{
			name:    "month zero",
			mutate:  func(r *AnalyzeRequest) { r.Month = 0 },
			wantErr: true,
		},
		{
			name:    "day above range",
			mutate:  func(r *AnalyzeRequest) { r.Day = 32 },
			wantErr: true,
		},
		{
			name:    "start year before archive minimum",
			mutate:  func(r *AnalyzeRequest) { r.StartYear = 1980 },
			wantErr: true,
		},
		{
			name:    "end year before start year",
			mutate:  func(r *AnalyzeRequest) { r.StartYear = 2010; r.EndYear = 2005 },
			wantErr: true,
		},
		{
			name:    "half window above range",
			mutate:  func(r *AnalyzeRequest) { r.HalfWindowDays = 31 },
			wantErr: true,
		},
		{
			name:    "empty factor set",
			mutate:  func(r *AnalyzeRequest) { r.Factors = []Factor{} },
			wantErr: true,
		},
		{
			name:    "unknown factor",
			mutate:  func(r *AnalyzeRequest) { r.Factors = []Factor{FactorTemperature, "dust"} },
			wantErr: true,
		},
		{
			name:    "single year span",
			mutate:  func(r *AnalyzeRequest) { r.StartYear = 2015; r.EndYear = 2015 },
			wantErr: false,
		},
		{
			name:    "zero half window",
			mutate:  func(r *AnalyzeRequest) { r.HalfWindowDays = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

// TestDefaultAnalyzeRequest_JSONDefaults checks that decoding a body over
// the default request keeps defaults for absent fields only.
func TestDefaultAnalyzeRequest_JSONDefaults(t *testing.T) {
	t.Run("absent fields keep defaults", func(t *testing.T) {
		req := DefaultAnalyzeRequest()
		body := `{"latitude":10,"longitude":20,"month":6,"day":15,"start_year":1990,"end_year":2010}`
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if req.HalfWindowDays != 10 {
			t.Errorf("HalfWindowDays = %d, want default 10", req.HalfWindowDays)
		}
		want := []Factor{FactorTemperature, FactorPrecipitation, FactorWindspeed, FactorHumidity}
		if !reflect.DeepEqual(req.Factors, want) {
			t.Errorf("Factors = %v, want defaults %v", req.Factors, want)
		}
	})

	t.Run("explicit fields override defaults", func(t *testing.T) {
		req := DefaultAnalyzeRequest()
		body := `{"latitude":10,"longitude":20,"month":6,"day":15,"start_year":1990,"end_year":2010,"half_window_days":0,"factors":["comfort"]}`
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if req.HalfWindowDays != 0 {
			t.Errorf("HalfWindowDays = %d, want explicit 0", req.HalfWindowDays)
		}
		if !reflect.DeepEqual(req.Factors, []Factor{FactorComfort}) {
			t.Errorf("Factors = %v, want [comfort]", req.Factors)
		}
	})
}

// TestVariablesForFactors checks minimal variable resolution, including the
// derived comfort factor which needs both temperature and humidity.
func TestVariablesForFactors(t *testing.T) {
	tests := []struct {
		name    string
		factors []Factor
		want    []Variable
	}{
		{
			name:    "single factor",
			factors: []Factor{FactorTemperature},
			want:    []Variable{VarTemperature},
		},
		{
			name:    "comfort expands to temperature and humidity",
			factors: []Factor{FactorComfort},
			want:    []Variable{VarHumidity, VarTemperature},
		},
		{
			name:    "overlapping factors deduplicate",
			factors: []Factor{FactorComfort, FactorTemperature, FactorHumidity},
			want:    []Variable{VarHumidity, VarTemperature},
		},
		{
			name:    "all factors",
			factors: []Factor{FactorTemperature, FactorPrecipitation, FactorWindspeed, FactorHumidity, FactorComfort},
			want:    []Variable{VarPrecipitation, VarHumidity, VarTemperature, VarWindspeed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VariablesForFactors(tt.factors)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("VariablesForFactors(%v) = %v, want %v", tt.factors, got, tt.want)
			}
		})
	}
}

// TestJobStatus_Terminal asserts the one-way transition semantics
func TestJobStatus_Terminal(t *testing.T) {
	if StatusRunning.Terminal() {
		t.Error("running must not be terminal")
	}
	if !StatusOK.Terminal() {
		t.Error("ok must be terminal")
	}
	if !StatusError.Terminal() {
		t.Error("error must be terminal")
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "factors",
		Value:   "dust",
		Message: "unsupported factor",
	}

	if err.Error() != "unsupported factor" {
		t.Errorf("Error() = %v, want %v", err.Error(), "unsupported factor")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}
