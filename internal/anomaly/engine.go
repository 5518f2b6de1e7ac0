package anomaly

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rxforecaster/backend-go/internal/config"
	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/forecast"
	"github.com/rxforecaster/backend-go/internal/repository"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// Summary aggregation thresholds. Each one gates a risk factor on a
// single method's output; the overall level depends only on the total.
const (
	zScoreFactorThreshold      = 5
	changepointFactorThreshold = 3
	seasonalFactorThreshold    = 10
)

// Engine runs every registered detector over an item's prepared series
// and folds the per-method outputs into one risk summary. Detector
// failures are captured per method and never abort the analysis.
type Engine struct {
	store     repository.Store
	detectors []Detector
	cfg       config.AnomalyConfig
	now       func() domain.Day
}

// NewEngine builds the engine with the standard detector set. The model
// interval detector is registered only when a seasonal model is supplied.
func NewEngine(store repository.Store, cfg config.AnomalyConfig, seasonal *forecast.Seasonal) *Engine {
	detectors := []Detector{NewZScoreDetector()}
	if seasonal != nil {
		detectors = append(detectors, NewModelBandDetector(seasonal))
	}
	detectors = append(detectors, NewSeasonalDetector(), NewSpikeDetector())

	return &Engine{
		store:     store,
		detectors: detectors,
		cfg:       cfg,
		now:       domain.Today,
	}
}

// WithClock overrides the engine's notion of "today"; used by tests.
func (e *Engine) WithClock(now func() domain.Day) *Engine {
	e.now = now
	return e
}

// ItemResult is one entry of a bulk detection run.
type ItemResult struct {
	Result *domain.AnomalyResult
	Err    error
}

// DetectAnomalies prepares the item's series over the trailing lookback
// window and runs every detector. daysBack overrides the configured
// window when positive.
func (e *Engine) DetectAnomalies(ctx context.Context, name string, daysBack int) (*domain.AnomalyResult, error) {
	if daysBack <= 0 {
		daysBack = e.cfg.LookbackDays
	}
	today := e.now()
	windowStart := today.AddDays(-daysBack)

	rows, err := e.store.GetSeries(ctx, name, daysBack)
	if err != nil {
		return nil, err
	}
	series, err := timeseries.Prepare(name, rows, windowStart, timeseries.MinSamples)
	if err != nil {
		return nil, err
	}

	var methods []domain.MethodResult
	for _, det := range e.detectors {
		out, err := det.Detect(ctx, series)
		if err != nil {
			log.Debug().Err(err).Str("drug", name).Str("method", det.Name()).Msg("anomaly detector failed")
			methods = append(methods, domain.MethodResult{Method: det.Name(), Err: err.Error()})
			continue
		}
		methods = append(methods, out)
	}

	return &domain.AnomalyResult{
		Drug: name,
		Period: domain.AnalysisPeriod{
			StartDate:    series.StartDate(),
			EndDate:      series.EndDate(),
			DaysAnalyzed: series.Len(),
		},
		Methods:     methods,
		Summary:     summarize(methods),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// summarize folds the per-method outputs into the overall risk view.
// Only methods that ran successfully contribute to the total.
func summarize(methods []domain.MethodResult) domain.AnomalySummary {
	summary := domain.AnomalySummary{
		RiskFactors:     []string{},
		Recommendations: []string{},
	}

	succeeded := 0
	for _, m := range methods {
		if m.Err != "" {
			continue
		}
		succeeded++
		summary.TotalAnomalies += m.AnomalyCount

		switch m.Method {
		case MethodZScore:
			if m.AnomalyCount > zScoreFactorThreshold {
				summary.RiskFactors = append(summary.RiskFactors,
					fmt.Sprintf("high frequency of statistical outliers (%d)", m.AnomalyCount))
				summary.Recommendations = append(summary.Recommendations,
					"review recent sales records for data entry errors or unusual orders")
			}
		case MethodModelInterval:
			if len(m.Changepoints) > changepointFactorThreshold {
				summary.RiskFactors = append(summary.RiskFactors,
					fmt.Sprintf("multiple trend changes detected (%d)", len(m.Changepoints)))
				summary.Recommendations = append(summary.Recommendations,
					"demand trend is unstable, re-run forecasts before committing orders")
			}
		case MethodSeasonal:
			if m.AnomalyCount > seasonalFactorThreshold {
				summary.RiskFactors = append(summary.RiskFactors,
					"significant deviations from seasonal patterns")
				summary.Recommendations = append(summary.Recommendations,
					"verify whether prescribing patterns have shifted for this item")
			}
		case MethodDemandSpike:
			if len(m.Sustained) > 0 {
				summary.RiskFactors = append(summary.RiskFactors,
					fmt.Sprintf("sustained demand spikes detected (%d)", len(m.Sustained)))
				summary.Recommendations = append(summary.Recommendations,
					"consider a temporary stock buffer while elevated demand persists")
			}
		}
	}

	summary.RiskLevel = domain.AnomalyRisk(summary.TotalAnomalies)
	summary.Confidence = domain.ConfidenceMedium
	if succeeded >= 3 {
		summary.Confidence = domain.ConfidenceHigh
	}
	return summary
}

// BulkDetect analyzes every named item on a bounded worker pool,
// isolating per-item failures.
func (e *Engine) BulkDetect(ctx context.Context, names []string, daysBack int) map[string]ItemResult {
	workers := e.cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}

	results := make(map[string]ItemResult, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		g.Go(func() error {
			result, err := e.DetectAnomalies(gctx, name, daysBack)
			mu.Lock()
			results[name] = ItemResult{Result: result, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
