package anomaly

import (
	"context"
	"math"
	"time"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// seasonalFactor is how many standard deviations a day may sit from its
// weekday/month baseline before it is flagged.
const seasonalFactor = 2.0

// SeasonalDetector compares each day against per-day-of-week and
// per-month mean/std baselines computed over the whole window. The two
// baselines are checked independently, so a day can be flagged by both.
type SeasonalDetector struct {
	Factor float64
}

func NewSeasonalDetector() *SeasonalDetector {
	return &SeasonalDetector{Factor: seasonalFactor}
}

func (d *SeasonalDetector) Name() string { return MethodSeasonal }

type baseline struct {
	mean float64
	std  float64
}

func groupBaselines[K comparable](s *timeseries.Series, key func(domain.Day) K) map[K]baseline {
	groups := make(map[K][]float64)
	for i, date := range s.Dates {
		k := key(date)
		groups[k] = append(groups[k], s.Raw[i])
	}
	out := make(map[K]baseline, len(groups))
	for k, vals := range groups {
		b := baseline{mean: timeseries.Mean(vals)}
		if sd := timeseries.Std(vals); !math.IsNaN(sd) {
			b.std = sd
		}
		out[k] = b
	}
	return out
}

func (d *SeasonalDetector) Detect(_ context.Context, s *timeseries.Series) (domain.MethodResult, error) {
	weekly := groupBaselines(s, func(day domain.Day) time.Weekday { return day.Weekday() })
	monthly := groupBaselines(s, func(day domain.Day) time.Month { return day.Month() })

	var anomalies []domain.PointAnomaly
	for i, date := range s.Dates {
		value := s.Raw[i]

		if b := weekly[date.Weekday()]; b.std > 0 {
			if z := math.Abs(value-b.mean) / b.std; z > d.Factor {
				anomalies = append(anomalies, domain.PointAnomaly{
					Date:     date,
					Actual:   value,
					Expected: b.mean,
					Score:    z,
					Type:     "weekly_seasonal",
				})
			}
		}
		if b := monthly[date.Month()]; b.std > 0 {
			if z := math.Abs(value-b.mean) / b.std; z > d.Factor {
				anomalies = append(anomalies, domain.PointAnomaly{
					Date:     date,
					Actual:   value,
					Expected: b.mean,
					Score:    z,
					Type:     "monthly_seasonal",
				})
			}
		}
	}

	return domain.MethodResult{
		Method:       d.Name(),
		AnomalyCount: len(anomalies),
		Anomalies:    anomalies,
	}, nil
}
