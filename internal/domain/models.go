package domain

import "time"

// Drug is a catalog entry tracked for stock and demand.
type Drug struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"drug_name" db:"drug_name"`
	CurrentStock     int       `json:"current_stock" db:"current_stock"`
	WeeklySales      float64   `json:"weekly_sales" db:"weekly_sales"`
	LeadTimeDays     int       `json:"lead_time_days" db:"lead_time_days"`
	Department       string    `json:"department" db:"department"`
	UnitCost         float64   `json:"unit_cost" db:"unit_cost"`
	TherapeuticClass string    `json:"therapeutic_class" db:"therapeutic_class"`
	MinStockLevel    int       `json:"min_stock_level" db:"min_stock_level"`
	MaxStockLevel    int       `json:"max_stock_level" db:"max_stock_level"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// WeeksRemaining is current stock expressed in weeks of average sales.
func (d Drug) WeeksRemaining() float64 {
	weekly := d.WeeklySales
	if weekly < 1 {
		weekly = 1
	}
	return float64(d.CurrentStock) / weekly
}

// SalesPoint is one row of the per-item daily sales series as returned by
// the store: same-date observations are already summed.
type SalesPoint struct {
	Date     Day     `json:"date" db:"date"`
	Quantity float64 `json:"quantity" db:"quantity"`
}

// SalesObservation is a raw append-only sales record.
type SalesObservation struct {
	Drug       string `json:"drug_name" db:"drug_name"`
	Date       Day    `json:"date" db:"date"`
	Quantity   int    `json:"sales_quantity" db:"sales_quantity"`
	Department string `json:"department" db:"department"`
}

// ForecastPoint is one step of a predicted demand curve. Point and bounds
// are clamped to be non-negative.
type ForecastPoint struct {
	Date  Day     `json:"date"`
	Point float64 `json:"point"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ModelForecast is one adapter's output: a forecast curve plus the
// in-sample fit error used to rank candidates.
type ModelForecast struct {
	ModelName string          `json:"model_name"`
	Points    []ForecastPoint `json:"points"`
	FitRMSE   float64         `json:"fit_rmse"`
	// Changepoints are trend-shift dates surfaced by the seasonal model;
	// empty for other adapters.
	Changepoints []Day `json:"changepoints,omitempty"`
}

// ModelAttempt records one adapter's participation in a comparison,
// successful or not.
type ModelAttempt struct {
	ModelName string  `json:"model_name"`
	FitRMSE   float64 `json:"fit_rmse,omitempty"`
	Err       string  `json:"error,omitempty"`
}

// StockoutAnalysis is the reorder decision derived from the best forecast.
type StockoutAnalysis struct {
	CurrentStock        int       `json:"current_stock"`
	StockoutDate        *Day      `json:"stockout_date"`
	DaysUntilStockout   *int      `json:"days_until_stockout"`
	ReorderDate         *Day      `json:"reorder_date"`
	RecommendedOrderQty int       `json:"recommended_order_qty"`
	LeadTimeDays        int       `json:"lead_time_days"`
	SafetyStockDays     int       `json:"safety_stock_days"`
	RiskLevel           RiskLevel `json:"risk_level"`
}

// ForecastResult is the full outcome of one forecast_item call.
type ForecastResult struct {
	Drug        string           `json:"drug_name"`
	Periods     int              `json:"periods"`
	Best        ModelForecast    `json:"best_model"`
	Comparison  []ModelAttempt   `json:"model_comparison"`
	Stockout    StockoutAnalysis `json:"stockout_analysis"`
	GeneratedAt time.Time        `json:"forecast_generated_at"`
}

// ForecastRow is one persisted forecast step (append-only log).
type ForecastRow struct {
	Drug      string  `db:"drug_name"`
	Date      Day     `db:"forecast_date"`
	Predicted float64 `db:"predicted_demand"`
	Model     string  `db:"model_used"`
	CILower   float64 `db:"confidence_interval_lower"`
	CIUpper   float64 `db:"confidence_interval_upper"`
	RMSE      float64 `db:"rmse"`
}

// AnomalyRecord is one append-only anomaly log row.
type AnomalyRecord struct {
	Drug        string  `json:"drug_name" db:"drug_name"`
	Date        Day     `json:"detection_date" db:"detection_date"`
	Method      string  `json:"anomaly_type" db:"anomaly_type"`
	Severity    float64 `json:"severity" db:"severity"`
	Description string  `json:"description" db:"description"`
}

// AnomalyPeriod is a merged run of consecutive flagged days.
type AnomalyPeriod struct {
	StartDate Day     `json:"start_date"`
	EndDate   Day     `json:"end_date"`
	MaxScore  float64 `json:"max_score"`
	Type      string  `json:"type"`
}

// PointAnomaly is a single flagged day with its expected-value context.
type PointAnomaly struct {
	Date     Day     `json:"date"`
	Actual   float64 `json:"actual"`
	Expected float64 `json:"expected"`
	Lower    float64 `json:"lower,omitempty"`
	Upper    float64 `json:"upper,omitempty"`
	Score    float64 `json:"score"`
	Type     string  `json:"type"`
}

// SpikeEvent is a sustained multi-day demand spike.
type SpikeEvent struct {
	StartDate     Day     `json:"start_date"`
	EndDate       Day     `json:"end_date"`
	DurationDays  int     `json:"duration_days"`
	MaxSpikeRatio float64 `json:"max_spike_ratio"`
	AvgSpikeRatio float64 `json:"avg_spike_ratio"`
}

// MethodResult is one detector's contribution to an analysis. A detector
// that failed carries only its name and error string.
type MethodResult struct {
	Method       string          `json:"method"`
	AnomalyCount int             `json:"anomalies_detected"`
	Periods      []AnomalyPeriod `json:"anomaly_periods,omitempty"`
	Anomalies    []PointAnomaly  `json:"anomalies,omitempty"`
	Changepoints []Day           `json:"changepoints,omitempty"`
	SingleSpikes []PointAnomaly  `json:"single_spikes,omitempty"`
	Sustained    []SpikeEvent    `json:"sustained_spikes,omitempty"`
	Err          string          `json:"error,omitempty"`
}

// AnomalySummary aggregates all detector outputs into one risk view.
type AnomalySummary struct {
	TotalAnomalies  int        `json:"total_anomalies_detected"`
	RiskLevel       RiskLevel  `json:"risk_level"`
	RiskFactors     []string   `json:"risk_factors"`
	Recommendations []string   `json:"recommendations"`
	Confidence      Confidence `json:"analysis_confidence"`
}

// AnalysisPeriod describes the window an analysis actually covered.
type AnalysisPeriod struct {
	StartDate    Day `json:"start_date"`
	EndDate      Day `json:"end_date"`
	DaysAnalyzed int `json:"days_analyzed"`
}

// AnomalyResult is the full outcome of one detect_anomalies call.
type AnomalyResult struct {
	Drug        string         `json:"drug_name"`
	Period      AnalysisPeriod `json:"analysis_period"`
	Methods     []MethodResult `json:"methods"`
	Summary     AnomalySummary `json:"summary"`
	GeneratedAt time.Time      `json:"analysis_generated_at"`
}
