package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/cache"
	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/forecast"
	"github.com/rxforecaster/backend-go/internal/repository"
)

// ForecastService fronts the forecast engine with caching and optional
// persistence of the winning curve. The engine itself stays stateless;
// everything operational lives here.
type ForecastService struct {
	engine  *forecast.Engine
	store   repository.Store
	cache   cache.ForecastCache
	persist bool
}

func NewForecastService(engine *forecast.Engine, store repository.Store, cacheImpl cache.ForecastCache, persist bool) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	return &ForecastService{
		engine:  engine,
		store:   store,
		cache:   cacheImpl,
		persist: persist,
	}
}

// ForecastItem returns the item's forecast, served from cache when a
// same-day entry for the same horizon exists.
func (s *ForecastService) ForecastItem(ctx context.Context, name string, periods int) (*domain.ForecastResult, error) {
	asOf := domain.Today()

	if cached, ok, err := s.cache.Get(ctx, name, periods, asOf); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("drug", name).Msg("forecast: cache get failed")
	}

	result, err := s.engine.ForecastItem(ctx, name, periods)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, name, periods, asOf, result); err != nil {
		log.Warn().Err(err).Str("drug", name).Msg("forecast: cache set failed")
	}
	if s.persist {
		if err := s.store.SaveForecast(ctx, forecastRows(result)); err != nil {
			log.Warn().Err(err).Str("drug", name).Msg("forecast: persist failed")
		}
	}

	return result, nil
}

// BulkForecast forecasts all named items, or the whole catalog when
// names is empty.
func (s *ForecastService) BulkForecast(ctx context.Context, names []string, periods int) (map[string]forecast.ItemResult, error) {
	if len(names) == 0 {
		var err error
		names, err = s.store.ListItems(ctx)
		if err != nil {
			return nil, err
		}
	}
	return s.engine.BulkForecast(ctx, names, periods), nil
}

func forecastRows(result *domain.ForecastResult) []domain.ForecastRow {
	rows := make([]domain.ForecastRow, 0, len(result.Best.Points))
	for _, p := range result.Best.Points {
		rows = append(rows, domain.ForecastRow{
			Drug:      result.Drug,
			Date:      p.Date,
			Predicted: p.Point,
			Model:     result.Best.ModelName,
			CILower:   p.Lower,
			CIUpper:   p.Upper,
			RMSE:      result.Best.FitRMSE,
		})
	}
	return rows
}
