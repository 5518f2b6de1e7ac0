// Package report assembles the reorder report: bulk forecast output
// joined with catalog metadata, sorted by urgency, with a summary block
// and a CSV rendering for procurement teams.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rxforecaster/backend-go/internal/domain"
)

// Forecast confidence tiers derived from the winning model's fit error.
const (
	confidenceHighRMSE   = 10.0
	confidenceMediumRMSE = 20.0
)

// Entry is one drug's reorder line.
type Entry struct {
	Drug                string            `json:"drug_name"`
	Department          string            `json:"department"`
	TherapeuticClass    string            `json:"therapeutic_class"`
	CurrentStock        int               `json:"current_stock"`
	WeeklySales         float64           `json:"weekly_sales"`
	DaysUntilStockout   *int              `json:"days_until_stockout"`
	StockoutDate        *domain.Day       `json:"stockout_date"`
	RiskLevel           domain.RiskLevel  `json:"risk_level"`
	RecommendedOrderQty int               `json:"recommended_order_qty"`
	ReorderDate         *domain.Day       `json:"reorder_date"`
	LeadTimeDays        int               `json:"lead_time_days"`
	UnitCost            float64           `json:"unit_cost"`
	TotalOrderCost      float64           `json:"total_order_cost"`
	BestModel           string            `json:"best_model"`
	ModelRMSE           float64           `json:"model_rmse"`
	ForecastConfidence  domain.Confidence `json:"forecast_confidence"`
}

// Summary aggregates the report's entries.
type Summary struct {
	TotalDrugsAnalyzed     int                      `json:"total_drugs_analyzed"`
	DrugsNeedingReorder    int                      `json:"drugs_needing_reorder"`
	TotalEstimatedCost     float64                  `json:"total_estimated_cost"`
	RiskDistribution       map[domain.RiskLevel]int `json:"risk_distribution"`
	DepartmentDistribution map[string]int           `json:"department_distribution"`
}

// Report is the full reorder report payload.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Periods     int               `json:"forecast_periods"`
	Entries     []Entry           `json:"reorder_data"`
	Summary     Summary           `json:"summary"`
	Failures    map[string]string `json:"failures,omitempty"`
}

// ForecastConfidence tiers a model's fit error.
func ForecastConfidence(rmse float64) domain.Confidence {
	switch {
	case rmse < confidenceHighRMSE:
		return domain.ConfidenceHigh
	case rmse < confidenceMediumRMSE:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// BuildEntry joins one forecast result with its catalog entry.
func BuildEntry(drug domain.Drug, result *domain.ForecastResult) Entry {
	qty := result.Stockout.RecommendedOrderQty
	return Entry{
		Drug:                result.Drug,
		Department:          drug.Department,
		TherapeuticClass:    drug.TherapeuticClass,
		CurrentStock:        result.Stockout.CurrentStock,
		WeeklySales:         drug.WeeklySales,
		DaysUntilStockout:   result.Stockout.DaysUntilStockout,
		StockoutDate:        result.Stockout.StockoutDate,
		RiskLevel:           result.Stockout.RiskLevel,
		RecommendedOrderQty: qty,
		ReorderDate:         result.Stockout.ReorderDate,
		LeadTimeDays:        result.Stockout.LeadTimeDays,
		UnitCost:            drug.UnitCost,
		TotalOrderCost:      float64(qty) * drug.UnitCost,
		BestModel:           result.Best.ModelName,
		ModelRMSE:           result.Best.FitRMSE,
		ForecastConfidence:  ForecastConfidence(result.Best.FitRMSE),
	}
}

// Assemble sorts the entries by urgency and computes the summary block.
// riskFilter, when non-empty, keeps only entries at the named levels.
func Assemble(entries []Entry, periods int, riskFilter []domain.RiskLevel) *Report {
	if len(riskFilter) > 0 {
		allowed := make(map[domain.RiskLevel]bool, len(riskFilter))
		for _, level := range riskFilter {
			allowed[level] = true
		}
		kept := entries[:0]
		for _, e := range entries {
			if allowed[e.RiskLevel] {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	// Risk level major, days-until-stockout minor; entries that never
	// stock out sort after any that do.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].RiskLevel != entries[j].RiskLevel {
			return entries[i].RiskLevel.Rank() < entries[j].RiskLevel.Rank()
		}
		return stockoutSortKey(entries[i]) < stockoutSortKey(entries[j])
	})

	summary := Summary{
		TotalDrugsAnalyzed:     len(entries),
		RiskDistribution:       make(map[domain.RiskLevel]int),
		DepartmentDistribution: make(map[string]int),
	}
	for _, e := range entries {
		summary.TotalEstimatedCost += e.TotalOrderCost
		summary.RiskDistribution[e.RiskLevel]++
		summary.DepartmentDistribution[e.Department]++
		if e.RiskLevel == domain.RiskCritical || e.RiskLevel == domain.RiskHigh {
			summary.DrugsNeedingReorder++
		}
	}

	return &Report{
		GeneratedAt: time.Now().UTC(),
		Periods:     periods,
		Entries:     entries,
		Summary:     summary,
	}
}

func stockoutSortKey(e Entry) int {
	if e.DaysUntilStockout == nil {
		return 999
	}
	return *e.DaysUntilStockout
}

var csvHeader = []string{
	"drug_name", "department", "therapeutic_class", "current_stock",
	"weekly_sales", "days_until_stockout", "stockout_date", "risk_level",
	"recommended_order_qty", "reorder_date", "lead_time_days", "unit_cost",
	"total_order_cost", "best_model", "model_rmse", "forecast_confidence",
}

// EncodeCSV renders the report's entries as a CSV document.
func (r *Report) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range r.Entries {
		record := []string{
			e.Drug,
			e.Department,
			e.TherapeuticClass,
			strconv.Itoa(e.CurrentStock),
			formatFloat(e.WeeklySales),
			formatIntPtr(e.DaysUntilStockout),
			formatDayPtr(e.StockoutDate),
			string(e.RiskLevel),
			strconv.Itoa(e.RecommendedOrderQty),
			formatDayPtr(e.ReorderDate),
			strconv.Itoa(e.LeadTimeDays),
			formatFloat(e.UnitCost),
			formatFloat(e.TotalOrderCost),
			e.BestModel,
			formatFloat(e.ModelRMSE),
			string(e.ForecastConfidence),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatDayPtr(d *domain.Day) string {
	if d == nil {
		return ""
	}
	return d.String()
}
