package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-odds/internal/models"
)

type rangeCall struct {
	start time.Time
	end   time.Time
}

// fakeDayRangeClient records each requested range and returns one row dated
// at the range start, or a canned error for a chosen start year.
type fakeDayRangeClient struct {
	calls    []rangeCall
	failYear int
	empty    bool
}

func (f *fakeDayRangeClient) FetchDayRange(ctx context.Context, lat, lon float64, start, end time.Time, vars []models.Variable) ([]models.DailyObservation, error) {
	f.calls = append(f.calls, rangeCall{start: start, end: end})

	if f.failYear != 0 && end.Year() == f.failYear {
		return nil, &UpstreamError{Attempts: 3, Err: fmt.Errorf("upstream status 500")}
	}
	if f.empty {
		return nil, nil
	}

	v := 1.0
	return []models.DailyObservation{
		{
			Date:   start,
			Year:   start.Year(),
			Values: map[models.Variable]*float64{models.VarTemperature: &v},
		},
	}, nil
}

func TestWindowFetcher_YearBoundaryWindows(t *testing.T) {
	fake := &fakeDayRangeClient{}
	fetcher := NewWindowFetcher(fake, testLogger())

	// Jan 3 with a 5-day half window reaches back into the prior December.
	rows, err := fetcher.FetchWindow(context.Background(), 10, 20, 1, 3, 1993, 1994, 5,
		[]models.Variable{models.VarTemperature})
	require.NoError(t, err)

	require.Len(t, fake.calls, 2)
	assert.Equal(t, time.Date(1992, 12, 29, 0, 0, 0, 0, time.UTC), fake.calls[0].start)
	assert.Equal(t, time.Date(1993, 1, 8, 0, 0, 0, 0, time.UTC), fake.calls[0].end)
	assert.Equal(t, time.Date(1993, 12, 29, 0, 0, 0, 0, time.UTC), fake.calls[1].start)
	assert.Equal(t, time.Date(1994, 1, 8, 0, 0, 0, 0, time.UTC), fake.calls[1].end)

	// Rows carry the requesting year even when the calendar date falls in
	// the prior year, so the per-year reduction groups them correctly.
	require.Len(t, rows, 2)
	assert.Equal(t, 1992, rows[0].Date.Year())
	assert.Equal(t, 1993, rows[0].Year)
	assert.Equal(t, 1994, rows[1].Year)
}

func TestWindowFetcher_ZeroHalfWindow(t *testing.T) {
	fake := &fakeDayRangeClient{}
	fetcher := NewWindowFetcher(fake, testLogger())

	_, err := fetcher.FetchWindow(context.Background(), 10, 20, 7, 15, 2000, 2000, 0,
		[]models.Variable{models.VarTemperature})
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, fake.calls[0].start, fake.calls[0].end)
	assert.Equal(t, time.Date(2000, 7, 15, 0, 0, 0, 0, time.UTC), fake.calls[0].start)
}

func TestWindowFetcher_FailFast(t *testing.T) {
	fake := &fakeDayRangeClient{failYear: 1994}
	fetcher := NewWindowFetcher(fake, testLogger())

	rows, err := fetcher.FetchWindow(context.Background(), 10, 20, 6, 1, 1993, 1996, 2,
		[]models.Variable{models.VarTemperature})
	require.Error(t, err)
	assert.Nil(t, rows)

	// The failing year is named and later years are never attempted.
	assert.Contains(t, err.Error(), "year 1994")
	var uErr *UpstreamError
	assert.True(t, errors.As(err, &uErr))
	assert.Len(t, fake.calls, 2)
}

func TestWindowFetcher_EmptyDatasetIsNotAnError(t *testing.T) {
	fake := &fakeDayRangeClient{empty: true}
	fetcher := NewWindowFetcher(fake, testLogger())

	rows, err := fetcher.FetchWindow(context.Background(), 10, 20, 6, 1, 2000, 2002, 1,
		[]models.Variable{models.VarTemperature})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Len(t, fake.calls, 3)
}
