package anomaly

import (
	"context"
	"math"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

const (
	zScoreWindow    = 14
	zScoreThreshold = 2.5
)

// ZScoreDetector flags days whose centered rolling z-score exceeds the
// threshold and merges contiguous flagged days into anomaly periods.
type ZScoreDetector struct {
	Window    int
	Threshold float64
}

func NewZScoreDetector() *ZScoreDetector {
	return &ZScoreDetector{Window: zScoreWindow, Threshold: zScoreThreshold}
}

func (d *ZScoreDetector) Name() string { return MethodZScore }

func (d *ZScoreDetector) Detect(_ context.Context, s *timeseries.Series) (domain.MethodResult, error) {
	means := timeseries.RollingMeanCentered(s.Raw, d.Window)
	stds := timeseries.RollingStdCentered(s.Raw, d.Window)

	n := s.Len()
	flagged := make([]bool, n)
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(means[i]) || math.IsNaN(stds[i]) || stds[i] <= 0 {
			continue
		}
		scores[i] = math.Abs(s.Raw[i]-means[i]) / stds[i]
		flagged[i] = scores[i] > d.Threshold
	}

	var periods []domain.AnomalyPeriod
	for i := 0; i < n; {
		if !flagged[i] {
			i++
			continue
		}
		start := i
		maxScore := scores[i]
		for i < n && flagged[i] {
			if scores[i] > maxScore {
				maxScore = scores[i]
			}
			i++
		}
		periods = append(periods, domain.AnomalyPeriod{
			StartDate: s.Dates[start],
			EndDate:   s.Dates[i-1],
			MaxScore:  maxScore,
			Type:      "z_score_spike",
		})
	}

	return domain.MethodResult{
		Method:       d.Name(),
		AnomalyCount: len(periods),
		Periods:      periods,
	}, nil
}
