// Package forecast implements the demand forecasting engine: three
// interchangeable model adapters over a prepared series, best-model
// selection by in-sample fit error, and the stockout/reorder analysis
// derived from the winning forecast curve.
package forecast

import (
	"context"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// Model names as they appear in results and persisted forecast rows.
const (
	ModelSeasonal      = "seasonal"
	ModelARIMA         = "arima"
	ModelMovingAverage = "moving_average"
)

// Model is a demand predictor over a prepared series. Implementations
// must be deterministic: the same series and periods always produce the
// same curve. A failing model returns an error and is simply excluded
// from the comparison set.
type Model interface {
	Name() string
	Forecast(ctx context.Context, s *timeseries.Series, periods int) (domain.ModelForecast, error)
}

// futureDates returns the `periods` daily dates following the series end.
func futureDates(s *timeseries.Series, periods int) []domain.Day {
	dates := make([]domain.Day, periods)
	last := s.EndDate()
	for i := 0; i < periods; i++ {
		dates[i] = last.AddDays(i + 1)
	}
	return dates
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
