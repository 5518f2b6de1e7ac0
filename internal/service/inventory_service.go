package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/cache"
	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/repository"
)

// InventoryService exposes the catalog read paths and the stock and
// sales write paths. Writes invalidate the item's cached forecasts,
// since a cached result embeds a stockout analysis computed from the
// stock and history at forecast time.
type InventoryService struct {
	store repository.Store
	cache cache.ForecastCache
}

func NewInventoryService(store repository.Store, forecastCache cache.ForecastCache) *InventoryService {
	if forecastCache == nil {
		forecastCache = cache.NewNoopForecastCache()
	}
	return &InventoryService{store: store, cache: forecastCache}
}

func (s *InventoryService) GetDrug(ctx context.Context, name string) (domain.Drug, error) {
	return s.store.GetItem(ctx, name)
}

func (s *InventoryService) ListDrugs(ctx context.Context, department string) ([]domain.Drug, error) {
	return s.store.ListDrugs(ctx, department)
}

func (s *InventoryService) Departments(ctx context.Context) ([]string, error) {
	return s.store.Departments(ctx)
}

func (s *InventoryService) LowStock(ctx context.Context, weeksThreshold float64) ([]repository.DrugCover, error) {
	if weeksThreshold <= 0 {
		weeksThreshold = 2
	}
	return s.store.LowStock(ctx, weeksThreshold)
}

func (s *InventoryService) UpdateStock(ctx context.Context, name string, newStock int) error {
	if err := s.store.UpdateStock(ctx, name, newStock); err != nil {
		return err
	}
	s.invalidateForecasts(ctx, name)
	return nil
}

// RecordSales appends sales observations and invalidates the cached
// forecasts of every item they touch.
func (s *InventoryService) RecordSales(ctx context.Context, obs []domain.SalesObservation) error {
	if len(obs) == 0 {
		return nil
	}
	if err := s.store.InsertSales(ctx, obs); err != nil {
		return err
	}

	seen := make(map[string]bool, len(obs))
	for _, o := range obs {
		if seen[o.Drug] {
			continue
		}
		seen[o.Drug] = true
		s.invalidateForecasts(ctx, o.Drug)
	}
	return nil
}

func (s *InventoryService) invalidateForecasts(ctx context.Context, name string) {
	if err := s.cache.InvalidateItem(ctx, name); err != nil {
		log.Warn().Err(err).Str("drug", name).Msg("inventory: forecast cache invalidation failed")
	}
}
