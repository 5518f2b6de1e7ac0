package forecast

import (
	"context"
	"fmt"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

const (
	movingAvgWindow = 14
	trendEdgeWindow = 7
)

// MovingAverage is the baseline adapter: the mean of the most recent
// smoothed values plus a linear trend term estimated from the edges of
// the series, with bounds at ±20% of the point estimate.
type MovingAverage struct {
	Window int
}

func NewMovingAverage() *MovingAverage {
	return &MovingAverage{Window: movingAvgWindow}
}

func (m *MovingAverage) Name() string { return ModelMovingAverage }

func (m *MovingAverage) Forecast(ctx context.Context, s *timeseries.Series, periods int) (domain.ModelForecast, error) {
	window := m.Window
	if window <= 0 {
		window = movingAvgWindow
	}
	n := s.Len()
	if n <= window || n < 2*trendEdgeWindow {
		return domain.ModelForecast{}, &domain.ModelFitError{
			Model: m.Name(),
			Err:   fmt.Errorf("series too short: %d values for window %d", n, window),
		}
	}

	smooth := s.Smooth
	recentAvg := timeseries.Mean(smooth[n-window:])

	// Trend per step from the difference between the series edges.
	headAvg := timeseries.Mean(smooth[:trendEdgeWindow])
	tailAvg := timeseries.Mean(smooth[n-trendEdgeWindow:])
	trend := (tailAvg - headAvg) / float64(n)

	dates := futureDates(s, periods)
	points := make([]domain.ForecastPoint, periods)
	for i := 0; i < periods; i++ {
		point := clampNonNegative(recentAvg + trend*float64(i))
		points[i] = domain.ForecastPoint{
			Date:  dates[i],
			Point: point,
			Lower: clampNonNegative(point * 0.8),
			Upper: point * 1.2,
		}
	}

	// Fit error of the naive "repeat the recent average" forecast over
	// the held-out tail.
	tail := smooth[window:]
	naive := make([]float64, len(tail))
	for i := range naive {
		naive[i] = recentAvg
	}

	return domain.ModelForecast{
		ModelName: m.Name(),
		Points:    points,
		FitRMSE:   timeseries.RMSE(tail, naive),
	}, nil
}
