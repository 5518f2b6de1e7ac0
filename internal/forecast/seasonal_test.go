package forecast

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// cyclicalSeries builds a prepared series oscillating around a base
// level with the given period in days.
func cyclicalSeries(t *testing.T, n int, base, amplitude, period float64) *timeseries.Series {
	t.Helper()
	start := day("2025-01-01")
	rows := make([]domain.SalesPoint, 0, n)
	for i := 0; i < n; i++ {
		value := base + amplitude*math.Sin(2*math.Pi*float64(i)/period)
		if value < 0 {
			value = 0
		}
		rows = append(rows, domain.SalesPoint{Date: start.AddDays(i), Quantity: value})
	}
	s, err := timeseries.Prepare("Amoxicillin", rows, start, timeseries.MinSamples)
	require.NoError(t, err)
	return s
}

func TestSeasonalTracksLevel(t *testing.T) {
	s := constantSeries(t, 120, 50)

	out, err := NewSeasonal().Forecast(context.Background(), s, 14)
	require.NoError(t, err)

	assert.Equal(t, ModelSeasonal, out.ModelName)
	require.Len(t, out.Points, 14)
	for _, p := range out.Points {
		assert.InDelta(t, 50.0, p.Point, 2.0)
		assert.LessOrEqual(t, p.Lower, p.Point)
		assert.GreaterOrEqual(t, p.Upper, p.Point)
	}
	assert.Less(t, out.FitRMSE, 1.0)
}

func TestSeasonalBeatsBaselineOnCyclicalDemand(t *testing.T) {
	// A monthly cycle survives the 7-day smoothing nearly intact; the
	// flat baseline cannot follow it, the seasonal model can.
	s := cyclicalSeries(t, 150, 40, 15, 30.5)
	ctx := context.Background()

	seasonal, err := NewSeasonal().Forecast(ctx, s, 14)
	require.NoError(t, err)
	baseline, err := NewMovingAverage().Forecast(ctx, s, 14)
	require.NoError(t, err)

	assert.Less(t, seasonal.FitRMSE, baseline.FitRMSE)
}

func TestSeasonalDetectsTrendChangepoint(t *testing.T) {
	// Flat demand for 60 days, then a steep sustained ramp.
	start := day("2025-01-01")
	n := 120
	rows := make([]domain.SalesPoint, 0, n)
	for i := 0; i < n; i++ {
		value := 20.0
		if i >= 60 {
			value = 20 + 2*float64(i-60)
		}
		rows = append(rows, domain.SalesPoint{Date: start.AddDays(i), Quantity: value})
	}
	s, err := timeseries.Prepare("Insulin", rows, start, timeseries.MinSamples)
	require.NoError(t, err)

	out, err := NewSeasonal().Forecast(context.Background(), s, 14)
	require.NoError(t, err)

	assert.NotEmpty(t, out.Changepoints)
}

func TestSeasonalForecastNonNegative(t *testing.T) {
	s := rampSeries(t, 90, 89, -1)

	out, err := NewSeasonal().Forecast(context.Background(), s, 30)
	require.NoError(t, err)
	for _, p := range out.Points {
		assert.GreaterOrEqual(t, p.Point, 0.0)
		assert.GreaterOrEqual(t, p.Lower, 0.0)
	}
}

func TestSeasonalDeterministic(t *testing.T) {
	s := cyclicalSeries(t, 120, 30, 10, 30.5)
	m := NewSeasonal()
	ctx := context.Background()

	first, err := m.Forecast(ctx, s, 14)
	require.NoError(t, err)
	second, err := m.Forecast(ctx, s, 14)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFitInSampleBandCoversMostPoints(t *testing.T) {
	s := cyclicalSeries(t, 120, 30, 10, 30.5)

	fit, err := NewSeasonal().FitInSample(s)
	require.NoError(t, err)
	require.Len(t, fit.Fitted, s.Len())

	inside := 0
	for i, v := range s.Raw {
		if v >= fit.Lower[i] && v <= fit.Upper[i] {
			inside++
		}
	}
	// A 1.96-sigma band should cover the bulk of a clean series.
	assert.Greater(t, float64(inside)/float64(s.Len()), 0.8)
}
