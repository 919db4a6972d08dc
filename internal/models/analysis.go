package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// MinYear is the earliest year the upstream archive covers.
const MinYear = 1981

// Static provenance tags stored on every job row.
const (
	ModelVersion   = "v1"
	DatasetVersion = "POWER-2024"
)

var validate = validator.New()

// AnalyzeRequest describes one historical-weather analysis. It is immutable
// once accepted; the job row stores a JSON copy of it.
type AnalyzeRequest struct {
	Latitude       float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude      float64  `json:"longitude" validate:"min=-180,max=180"`
	Month          int      `json:"month" validate:"min=1,max=12"`
	Day            int      `json:"day" validate:"min=1,max=31"`
	StartYear      int      `json:"start_year" validate:"min=1981"`
	EndYear        int      `json:"end_year" validate:"min=1981"`
	HalfWindowDays int      `json:"half_window_days" validate:"min=0,max=30"`
	Factors        []Factor `json:"factors" validate:"min=1"`
}

// DefaultAnalyzeRequest returns a request pre-filled with the documented
// defaults. Decoding a JSON body over it keeps the defaults for absent fields.
func DefaultAnalyzeRequest() AnalyzeRequest {
	return AnalyzeRequest{
		HalfWindowDays: 10,
		Factors: []Factor{
			FactorTemperature,
			FactorPrecipitation,
			FactorWindspeed,
			FactorHumidity,
		},
	}
}

// Validate checks field ranges and the factor set. It returns a
// *ValidationError so callers can reject the request before any job exists.
func (r *AnalyzeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return &ValidationError{
				Field:   fe.Field(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()),
			}
		}
		return &ValidationError{Message: err.Error()}
	}

	if r.EndYear < r.StartYear {
		return &ValidationError{
			Field:   "end_year",
			Value:   fmt.Sprintf("%d", r.EndYear),
			Message: "end_year must not be before start_year",
		}
	}

	for _, f := range r.Factors {
		if !KnownFactors[f] {
			return &ValidationError{
				Field:   "factors",
				Value:   string(f),
				Message: fmt.Sprintf("unsupported factor %q", f),
			}
		}
	}

	return nil
}

// JobStatus is the lifecycle state of an analysis job. Transitions are
// one-way: running -> ok or running -> error, written exactly once.
type JobStatus string

const (
	StatusRunning JobStatus = "running"
	StatusOK      JobStatus = "ok"
	StatusError   JobStatus = "error"
)

// Terminal reports whether no further transition can occur.
func (s JobStatus) Terminal() bool {
	return s == StatusOK || s == StatusError
}

// AnalyzeJob is one analysis job row. The row is created in running state at
// submission time; the detached worker applies a single JobOutcome later. The
// worker and the submitting handler only ever share the job id, never this
// struct.
type AnalyzeJob struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	Status         JobStatus       `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	DurationMs     *int64          `json:"duration_ms,omitempty" db:"duration_ms"`
	Params         json.RawMessage `json:"params_json,omitempty" db:"params_json"`
	Result         json.RawMessage `json:"result_json,omitempty" db:"result_json"`
	ResultURI      *string         `json:"result_uri,omitempty" db:"result_uri"`
	ResultHash     *string         `json:"result_hash,omitempty" db:"result_hash"`
	ModelVersion   string          `json:"model_version" db:"model_version"`
	DatasetVersion string          `json:"dataset_version" db:"dataset_version"`
	ResponseStatus *int            `json:"response_status,omitempty" db:"response_status"`
}

// JobOutcome is the terminal state of a job, constructed once by the worker
// and applied with a single store update. ResultHash is set only on ok.
type JobOutcome struct {
	Status         JobStatus
	Result         json.RawMessage
	ResultHash     *string
	DurationMs     int64
	ResponseStatus int
}

// DailyObservation is one day of upstream data tagged with the calendar year
// whose window produced it. Values are nullable: the provider may omit a
// variable for a day. Observations are never persisted.
type DailyObservation struct {
	Date   time.Time
	Year   int
	Values map[Variable]*float64
}

// Value returns the observation's value for a variable, nil when missing.
func (o DailyObservation) Value(v Variable) *float64 {
	return o.Values[v]
}

// FactorResult is the per-factor analysis output. Typical is nil and Label is
// the insufficient-data sentinel when the null-filtered sample is empty or a
// required percentile is undefined. The extra fields are precipitation-only.
type FactorResult struct {
	Units       string             `json:"units"`
	NYears      int                `json:"n_years"`
	Typical     *float64           `json:"typical"`
	Percentiles map[string]float64 `json:"percentiles,omitempty"`
	Label       string             `json:"label"`

	WindowDays           *int               `json:"window_days,omitempty"`
	NDaysTotal           *int               `json:"n_days_total,omitempty"`
	WetThresholdMM       *float64           `json:"wet_threshold_mm,omitempty"`
	ProbWetDay           *float64           `json:"prob_wet_day,omitempty"`
	IntensityPercentiles map[string]float64 `json:"intensity_percentiles,omitempty"`
}

// Location echoes the analyzed point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TargetDay echoes the analyzed calendar day and window.
type TargetDay struct {
	Month          int `json:"month"`
	Day            int `json:"day"`
	HalfWindowDays int `json:"half_window_days"`
}

// YearSpan echoes the requested year range and how many distinct years
// actually carried data.
type YearSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Count int `json:"count"`
}

// AnalyzeResult is the structured result payload stored on ok jobs. When the
// upstream window produced no rows, OK is false and only Message is set; this
// is a valid outcome, not a job error.
type AnalyzeResult struct {
	OK             bool                    `json:"ok"`
	Message        string                  `json:"message,omitempty"`
	Location       *Location               `json:"location,omitempty"`
	TargetDay      *TargetDay              `json:"target_day,omitempty"`
	Years          *YearSpan               `json:"years,omitempty"`
	PowerVariables []Variable              `json:"power_variables,omitempty"`
	Factors        []Factor                `json:"factors,omitempty"`
	Results        map[Factor]FactorResult `json:"results,omitempty"`
}

// ValidationError represents a malformed or out-of-range request. It is
// raised synchronously at submission; no job row is produced.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
