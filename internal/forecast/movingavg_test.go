package forecast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

func day(s string) domain.Day {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// constantSeries builds a prepared series with the same quantity every day.
func constantSeries(t *testing.T, n int, value float64) *timeseries.Series {
	t.Helper()
	start := day("2025-01-01")
	rows := make([]domain.SalesPoint, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.SalesPoint{Date: start.AddDays(i), Quantity: value})
	}
	s, err := timeseries.Prepare("Aspirin", rows, start, timeseries.MinSamples)
	require.NoError(t, err)
	return s
}

// rampSeries builds a prepared series increasing by `slope` per day.
func rampSeries(t *testing.T, n int, base, slope float64) *timeseries.Series {
	t.Helper()
	start := day("2025-01-01")
	rows := make([]domain.SalesPoint, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.SalesPoint{Date: start.AddDays(i), Quantity: base + slope*float64(i)})
	}
	s, err := timeseries.Prepare("Aspirin", rows, start, timeseries.MinSamples)
	require.NoError(t, err)
	return s
}

func TestMovingAverageConstantSeries(t *testing.T) {
	s := constantSeries(t, 60, 10)

	out, err := NewMovingAverage().Forecast(context.Background(), s, 14)
	require.NoError(t, err)

	assert.Equal(t, ModelMovingAverage, out.ModelName)
	require.Len(t, out.Points, 14)

	for i, p := range out.Points {
		assert.InDelta(t, 10.0, p.Point, 1e-9)
		assert.InDelta(t, 8.0, p.Lower, 1e-9)
		assert.InDelta(t, 12.0, p.Upper, 1e-9)
		assert.True(t, p.Date.Equal(s.EndDate().AddDays(i+1)))
	}
	assert.InDelta(t, 0.0, out.FitRMSE, 1e-9)
}

func TestMovingAverageFollowsTrend(t *testing.T) {
	s := rampSeries(t, 90, 10, 1)

	out, err := NewMovingAverage().Forecast(context.Background(), s, 7)
	require.NoError(t, err)

	// An increasing series yields an increasing forecast.
	for i := 1; i < len(out.Points); i++ {
		assert.Greater(t, out.Points[i].Point, out.Points[i-1].Point)
	}
}

func TestMovingAverageNeverNegative(t *testing.T) {
	s := rampSeries(t, 60, 59, -1) // declines to zero

	out, err := NewMovingAverage().Forecast(context.Background(), s, 30)
	require.NoError(t, err)

	for _, p := range out.Points {
		assert.GreaterOrEqual(t, p.Point, 0.0)
		assert.GreaterOrEqual(t, p.Lower, 0.0)
	}
}

func TestMovingAverageSeriesTooShort(t *testing.T) {
	start := day("2025-01-01")
	rows := make([]domain.SalesPoint, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, domain.SalesPoint{Date: start.AddDays(i), Quantity: 5})
	}
	s, err := timeseries.Prepare("Aspirin", rows, start, 10)
	require.NoError(t, err)

	_, err = NewMovingAverage().Forecast(context.Background(), s, 7)
	var mfe *domain.ModelFitError
	assert.ErrorAs(t, err, &mfe)
}

func TestMovingAverageDeterministic(t *testing.T) {
	s := rampSeries(t, 90, 20, 0.5)
	m := NewMovingAverage()

	first, err := m.Forecast(context.Background(), s, 14)
	require.NoError(t, err)
	second, err := m.Forecast(context.Background(), s, 14)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
