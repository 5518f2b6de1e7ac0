package anomaly

import (
	"context"
	"math"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

const (
	spikeBaselineWindow = 7
	spikeRatioThreshold = 3.0
	spikeHighSeverity   = 4.5
	spikeMergeGapDays   = 3
	sustainedMinDays    = 2
)

// SpikeDetector flags days whose demand is a multiple of the local
// rolling-median baseline, then groups nearby spikes into sustained
// events.
type SpikeDetector struct {
	Window    int
	Threshold float64
}

func NewSpikeDetector() *SpikeDetector {
	return &SpikeDetector{Window: spikeBaselineWindow, Threshold: spikeRatioThreshold}
}

func (d *SpikeDetector) Name() string { return MethodDemandSpike }

func (d *SpikeDetector) Detect(_ context.Context, s *timeseries.Series) (domain.MethodResult, error) {
	baseline := timeseries.RollingMedianCentered(s.Raw, d.Window)

	var (
		spikes []domain.PointAnomaly
		idxs   []int
		ratios []float64
	)
	for i, value := range s.Raw {
		base := baseline[i]
		if math.IsNaN(base) || base == 0 {
			continue
		}
		ratio := value / base
		if ratio < d.Threshold {
			continue
		}
		severity := "medium"
		if ratio >= spikeHighSeverity {
			severity = "high"
		}
		spikes = append(spikes, domain.PointAnomaly{
			Date:     s.Dates[i],
			Actual:   value,
			Expected: base,
			Score:    ratio,
			Type:     severity,
		})
		idxs = append(idxs, i)
		ratios = append(ratios, ratio)
	}

	sustained := mergeSustained(s, idxs, ratios)

	return domain.MethodResult{
		Method:       d.Name(),
		AnomalyCount: len(spikes),
		SingleSpikes: spikes,
		Sustained:    sustained,
	}, nil
}

// mergeSustained groups spike days separated by at most spikeMergeGapDays
// into runs; runs with at least sustainedMinDays spike days become events.
func mergeSustained(s *timeseries.Series, idxs []int, ratios []float64) []domain.SpikeEvent {
	var events []domain.SpikeEvent
	for start := 0; start < len(idxs); {
		end := start
		for end+1 < len(idxs) && idxs[end+1]-idxs[end] <= spikeMergeGapDays {
			end++
		}
		if end-start+1 >= sustainedMinDays {
			run := ratios[start : end+1]
			maxRatio, sum := run[0], 0.0
			for _, r := range run {
				if r > maxRatio {
					maxRatio = r
				}
				sum += r
			}
			events = append(events, domain.SpikeEvent{
				StartDate:     s.Dates[idxs[start]],
				EndDate:       s.Dates[idxs[end]],
				DurationDays:  end - start + 1,
				MaxSpikeRatio: maxRatio,
				AvgSpikeRatio: sum / float64(len(run)),
			})
		}
		start = end + 1
	}
	return events
}
