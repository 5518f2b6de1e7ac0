// Package timeseries prepares per-item daily sales series for the
// forecasting and anomaly engines: same-date aggregation, gap filling
// over a dense daily calendar, and rolling-mean smoothing.
package timeseries

import (
	"fmt"

	"github.com/rxforecaster/backend-go/internal/domain"
)

// MinSamples is the minimum number of daily rows required before a series
// is considered usable for forecasting or anomaly detection.
const MinSamples = 30

// SmoothingWindow is the centered rolling-mean window applied to the raw
// series to produce the smoothed view consumed by forecasting.
const SmoothingWindow = 7

// Series is a prepared, gap-free daily view of one item's sales. Raw keeps
// the unsmoothed values for the statistical anomaly methods; Smooth is the
// centered rolling mean with raw fallback where the window is incomplete.
type Series struct {
	Item   string
	Dates  []domain.Day
	Raw    []float64
	Smooth []float64
}

func (s *Series) Len() int { return len(s.Dates) }

func (s *Series) StartDate() domain.Day { return s.Dates[0] }
func (s *Series) EndDate() domain.Day   { return s.Dates[len(s.Dates)-1] }

// Prepare builds the dense series for one item over
// [windowStart, latest observed date]. Duplicate observations on the same
// date are summed; missing dates are filled with zero.
//
// It fails with domain.ErrItemNotFound when there are no observations at
// all, and with domain.InsufficientDataError when the resulting calendar
// has fewer than minSamples rows.
func Prepare(item string, rows []domain.SalesPoint, windowStart domain.Day, minSamples int) (*Series, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no sales history for %s: %w", item, domain.ErrItemNotFound)
	}
	if minSamples <= 0 {
		minSamples = MinSamples
	}

	totals := make(map[string]float64, len(rows))
	latest := rows[0].Date
	for _, row := range rows {
		totals[row.Date.String()] += row.Quantity
		if row.Date.After(latest) {
			latest = row.Date
		}
	}

	n := windowStart.DaysUntil(latest) + 1
	if n < minSamples {
		return nil, &domain.InsufficientDataError{Item: item, Rows: n, Required: minSamples}
	}

	s := &Series{
		Item:  item,
		Dates: make([]domain.Day, n),
		Raw:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		d := windowStart.AddDays(i)
		s.Dates[i] = d
		s.Raw[i] = totals[d.String()]
	}

	smooth := RollingMeanCentered(s.Raw, SmoothingWindow)
	s.Smooth = make([]float64, n)
	for i := range smooth {
		if isNaN(smooth[i]) {
			s.Smooth[i] = s.Raw[i]
		} else {
			s.Smooth[i] = smooth[i]
		}
	}

	return s, nil
}
