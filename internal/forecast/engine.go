package forecast

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rxforecaster/backend-go/internal/config"
	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/repository"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// Engine orchestrates the model adapters: prepares the series, runs every
// available adapter, picks the winner by fit error, and derives the
// stockout analysis. It is stateless across calls.
type Engine struct {
	store  repository.Store
	models []Model
	cfg    config.ForecastConfig
	now    func() domain.Day
}

// NewEngine builds the engine with the adapter registry resolved from the
// capability flags. Registration order is the tie-break priority:
// seasonal first, then ARIMA, then the moving-average baseline.
func NewEngine(store repository.Store, cfg config.ForecastConfig) *Engine {
	var models []Model
	if cfg.SeasonalEnabled {
		models = append(models, NewSeasonal())
	}
	if cfg.ARIMAEnabled {
		models = append(models, NewARIMA(cfg.MaxAROrder, cfg.MaxMAOrder))
	}
	models = append(models, NewMovingAverage())

	return &Engine{
		store:  store,
		models: models,
		cfg:    cfg,
		now:    domain.Today,
	}
}

// WithClock overrides the engine's notion of "today"; used by tests.
func (e *Engine) WithClock(now func() domain.Day) *Engine {
	e.now = now
	return e
}

// ItemResult is one entry of a bulk forecast: a result or an error,
// keyed by item name so partial failures stay attributable.
type ItemResult struct {
	Result *domain.ForecastResult
	Err    error
}

// ForecastItem runs every available adapter over the item's prepared
// series and derives the reorder recommendation from the best forecast.
// periods is required: there is no implicit default horizon.
func (e *Engine) ForecastItem(ctx context.Context, name string, periods int) (*domain.ForecastResult, error) {
	today := e.now()
	windowStart := today.AddDays(-e.cfg.LookbackDays)

	rows, err := e.store.GetSeries(ctx, name, e.cfg.LookbackDays)
	if err != nil {
		return nil, err
	}
	series, err := timeseries.Prepare(name, rows, windowStart, timeseries.MinSamples)
	if err != nil {
		return nil, err
	}

	drug, err := e.store.GetItem(ctx, name)
	if err != nil {
		return nil, err
	}

	var (
		attempts  []domain.ModelAttempt
		successes []domain.ModelForecast
	)
	for _, model := range e.models {
		out, err := e.runModel(ctx, model, series, periods)
		if err != nil {
			log.Debug().Err(err).Str("drug", name).Str("model", model.Name()).Msg("forecast model failed")
			attempts = append(attempts, domain.ModelAttempt{ModelName: model.Name(), Err: err.Error()})
			continue
		}
		attempts = append(attempts, domain.ModelAttempt{ModelName: model.Name(), FitRMSE: out.FitRMSE})
		successes = append(successes, out)
	}
	if len(successes) == 0 {
		return nil, domain.ErrAllModelsFailed
	}

	// Minimum fit error wins; on an exact tie the earlier-registered
	// adapter keeps the win.
	best := successes[0]
	for _, candidate := range successes[1:] {
		if candidate.FitRMSE < best.FitRMSE {
			best = candidate
		}
	}

	return &domain.ForecastResult{
		Drug:        name,
		Periods:     periods,
		Best:        best,
		Comparison:  attempts,
		Stockout:    e.deriveStockout(drug, best.Points, today),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// runModel executes one adapter under its fit-timeout budget.
func (e *Engine) runModel(ctx context.Context, model Model, s *timeseries.Series, periods int) (domain.ModelForecast, error) {
	if e.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.FitTimeout)
		defer cancel()
	}
	out, err := model.Forecast(ctx, s, periods)
	if err != nil {
		return domain.ModelForecast{}, err
	}
	if math.IsNaN(out.FitRMSE) || math.IsInf(out.FitRMSE, 0) {
		return domain.ModelForecast{}, &domain.ModelFitError{Model: model.Name(), Err: errSingular}
	}
	return out, nil
}

// deriveStockout accumulates forecast demand against current stock minus
// the safety buffer and converts the crossing into a reorder decision.
func (e *Engine) deriveStockout(drug domain.Drug, points []domain.ForecastPoint, today domain.Day) domain.StockoutAnalysis {
	analysis := domain.StockoutAnalysis{
		CurrentStock:    drug.CurrentStock,
		LeadTimeDays:    drug.LeadTimeDays,
		SafetyStockDays: e.cfg.SafetyStockDays,
	}

	threshold := float64(drug.CurrentStock - e.cfg.SafetyStockDays)
	var cumulative float64
	for _, p := range points {
		cumulative += p.Point
		if cumulative >= threshold {
			d := p.Date
			analysis.StockoutDate = &d
			break
		}
	}

	if analysis.StockoutDate != nil {
		days := today.DaysUntil(*analysis.StockoutDate)
		analysis.DaysUntilStockout = &days

		reorder := analysis.StockoutDate.AddDays(-drug.LeadTimeDays)
		if reorder.Before(today) {
			reorder = today
		}
		analysis.ReorderDate = &reorder
	}

	if len(points) > 0 {
		var sum float64
		for _, p := range points {
			sum += p.Point
		}
		avgDaily := sum / float64(len(points))
		coverDays := drug.LeadTimeDays + e.cfg.SafetyStockDays + e.cfg.ExtraCoverDays
		analysis.RecommendedOrderQty = int(avgDaily * float64(coverDays))
	}

	analysis.RiskLevel = domain.StockoutRisk(analysis.DaysUntilStockout, drug.LeadTimeDays)
	return analysis
}

// BulkForecast forecasts every named item on a bounded worker pool,
// isolating per-item failures. The result always has exactly one entry
// per requested item.
func (e *Engine) BulkForecast(ctx context.Context, names []string, periods int) map[string]ItemResult {
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
			result, err := e.ForecastItem(gctx, name, periods)
			mu.Lock()
			results[name] = ItemResult{Result: result, Err: err}
			mu.Unlock()
			// Per-item failures never abort the batch.
			return nil
		})
	}
	_ = g.Wait()

	return results
}
