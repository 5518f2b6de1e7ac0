package forecast

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// noisySeries builds a prepared series around a base level with seeded
// noise, optionally drifting by `drift` per day.
func noisySeries(t *testing.T, n int, base, noise, drift float64) *timeseries.Series {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	start := day("2025-01-01")
	rows := make([]domain.SalesPoint, 0, n)
	for i := 0; i < n; i++ {
		value := base + drift*float64(i) + noise*rng.NormFloat64()
		if value < 0 {
			value = 0
		}
		rows = append(rows, domain.SalesPoint{Date: start.AddDays(i), Quantity: value})
	}
	s, err := timeseries.Prepare("Metformin", rows, start, timeseries.MinSamples)
	require.NoError(t, err)
	return s
}

func TestARIMAStationarySeries(t *testing.T) {
	s := noisySeries(t, 120, 50, 4, 0)

	out, err := NewARIMA(3, 3).Forecast(context.Background(), s, 14)
	require.NoError(t, err)

	assert.Equal(t, ModelARIMA, out.ModelName)
	require.Len(t, out.Points, 14)
	assert.False(t, math.IsNaN(out.FitRMSE))

	for i, p := range out.Points {
		assert.InDelta(t, 50.0, p.Point, 20.0, "point %d drifted from the level", i)
		assert.LessOrEqual(t, p.Lower, p.Point)
		assert.GreaterOrEqual(t, p.Upper, p.Point)
		assert.GreaterOrEqual(t, p.Lower, 0.0)
	}

	// Forecast variance accumulates: the band must not narrow over the
	// horizon.
	firstWidth := out.Points[0].Upper - out.Points[0].Lower
	lastWidth := out.Points[len(out.Points)-1].Upper - out.Points[len(out.Points)-1].Lower
	assert.GreaterOrEqual(t, lastWidth+1e-9, firstWidth)
}

func TestARIMATrendingSeriesKeepsRising(t *testing.T) {
	s := noisySeries(t, 150, 30, 2, 1)

	out, err := NewARIMA(3, 3).Forecast(context.Background(), s, 14)
	require.NoError(t, err)

	// A differenced model over a steady ramp extrapolates upward.
	last := s.Smooth[s.Len()-1]
	assert.Greater(t, out.Points[len(out.Points)-1].Point, last-10)
}

func TestARIMADeterministic(t *testing.T) {
	s := noisySeries(t, 120, 40, 5, 0)
	m := NewARIMA(3, 3)
	ctx := context.Background()

	first, err := m.Forecast(ctx, s, 14)
	require.NoError(t, err)
	second, err := m.Forecast(ctx, s, 14)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestARIMACancelledContext(t *testing.T) {
	s := noisySeries(t, 120, 40, 5, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewARIMA(3, 3).Forecast(ctx, s, 14)
	assert.Error(t, err)
}

func TestADFStationarity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// White noise around a level is stationary.
	level := make([]float64, 200)
	for i := range level {
		level[i] = 10 + rng.NormFloat64()
	}
	assert.True(t, adfStationary(level))

	// A random walk with drift is not.
	walk := make([]float64, 200)
	walk[0] = 10
	for i := 1; i < len(walk); i++ {
		walk[i] = walk[i-1] + 0.5 + 0.1*rng.NormFloat64()
	}
	assert.False(t, adfStationary(walk))

	// Short series are never declared stationary.
	assert.False(t, adfStationary(level[:10]))
}
