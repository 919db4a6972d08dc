package upstream

import (
	"context"
	"fmt"
	"time"

	"climate-odds/internal/models"
	"climate-odds/pkg/logging"
)

// DayRangeClient fetches one contiguous day range of upstream variables.
type DayRangeClient interface {
	FetchDayRange(ctx context.Context, lat, lon float64, start, end time.Time, vars []models.Variable) ([]models.DailyObservation, error)
}

// WindowFetcher expands a (month, day, half-window) target into one calendar
// window per year and concatenates the per-year fetches into one dataset.
type WindowFetcher struct {
	client DayRangeClient
	logger *logging.StructuredLogger
}

// NewWindowFetcher creates a window fetcher over the given client.
func NewWindowFetcher(client DayRangeClient, logger *logging.StructuredLogger) *WindowFetcher {
	return &WindowFetcher{
		client: client,
		logger: logger,
	}
}

// FetchWindow fetches [day-halfWindowDays, day+halfWindowDays] for every year
// in [startYear, endYear] and tags each row with its year. Windows are
// calendar-correct: they may cross month and year boundaries.
//
// Fails fast: if any year's fetch fails after its own retries, the whole
// window fetch fails. One bad year voids the multi-decade analysis; there is
// no partial-results mode. An empty dataset is a valid non-error outcome.
func (f *WindowFetcher) FetchWindow(ctx context.Context, lat, lon float64, month, day, startYear, endYear, halfWindowDays int, vars []models.Variable) ([]models.DailyObservation, error) {
	var all []models.DailyObservation

	for year := startYear; year <= endYear; year++ {
		center := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		start := center.AddDate(0, 0, -halfWindowDays)
		end := center.AddDate(0, 0, halfWindowDays)

		rows, err := f.client.FetchDayRange(ctx, lat, lon, start, end, vars)
		if err != nil {
			return nil, fmt.Errorf("fetch window for year %d: %w", year, err)
		}

		for i := range rows {
			rows[i].Year = year
		}
		all = append(all, rows...)

		f.logger.Debug(ctx, "[WINDOW_YEAR] Year window fetched", logging.Fields{
			"year":  year,
			"start": start.Format(dateLayout),
			"end":   end.Format(dateLayout),
			"rows":  len(rows),
		})
	}

	return all, nil
}
