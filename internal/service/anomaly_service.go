package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/anomaly"
	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/repository"
)

// AnomalyService fronts the anomaly engine and appends one summary row
// to the anomaly log after each successful analysis.
type AnomalyService struct {
	engine *anomaly.Engine
	store  repository.Store
}

func NewAnomalyService(engine *anomaly.Engine, store repository.Store) *AnomalyService {
	return &AnomalyService{engine: engine, store: store}
}

// DetectAnomalies analyzes one item over the trailing daysBack window
// (the configured lookback when daysBack <= 0).
func (s *AnomalyService) DetectAnomalies(ctx context.Context, name string, daysBack int) (*domain.AnomalyResult, error) {
	result, err := s.engine.DetectAnomalies(ctx, name, daysBack)
	if err != nil {
		return nil, err
	}

	rec := summaryRecord(result)
	if err := s.store.RecordAnomaly(ctx, rec); err != nil {
		log.Warn().Err(err).Str("drug", name).Msg("anomaly: persist summary failed")
	}

	return result, nil
}

// BulkDetect analyzes all named items, or the whole catalog when names
// is empty. Summary rows are appended for every successful analysis.
func (s *AnomalyService) BulkDetect(ctx context.Context, names []string, daysBack int) (map[string]anomaly.ItemResult, error) {
	if len(names) == 0 {
		var err error
		names, err = s.store.ListItems(ctx)
		if err != nil {
			return nil, err
		}
	}

	results := s.engine.BulkDetect(ctx, names, daysBack)
	for name, item := range results {
		if item.Err != nil {
			continue
		}
		if err := s.store.RecordAnomaly(ctx, summaryRecord(item.Result)); err != nil {
			log.Warn().Err(err).Str("drug", name).Msg("anomaly: persist summary failed")
		}
	}
	return results, nil
}

func summaryRecord(result *domain.AnomalyResult) domain.AnomalyRecord {
	description := "no notable risk factors"
	if len(result.Summary.RiskFactors) > 0 {
		description = strings.Join(result.Summary.RiskFactors, "; ")
	}
	return domain.AnomalyRecord{
		Drug:        result.Drug,
		Date:        domain.NewDay(result.GeneratedAt),
		Method:      "summary",
		Severity:    float64(result.Summary.TotalAnomalies),
		Description: description,
	}
}
