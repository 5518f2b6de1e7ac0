package domain

// RiskLevel classifies stockout urgency and anomaly exposure.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
	RiskMinimal  RiskLevel = "MINIMAL"
)

// riskRank orders risk levels for report sorting, most urgent first.
var riskRank = map[RiskLevel]int{
	RiskCritical: 0,
	RiskHigh:     1,
	RiskMedium:   2,
	RiskLow:      3,
	RiskMinimal:  4,
}

// Rank returns the sort position of the level; unknown levels sort last.
func (r RiskLevel) Rank() int {
	if rank, ok := riskRank[r]; ok {
		return rank
	}
	return len(riskRank)
}

// Confidence qualifies how much of an analysis completed successfully.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// StockoutRisk maps days-until-stockout and lead time to a risk level.
// A nil daysUntilStockout means demand never exhausts stock within the
// forecast horizon.
func StockoutRisk(daysUntilStockout *int, leadTimeDays int) RiskLevel {
	if daysUntilStockout == nil {
		return RiskLow
	}
	days := *daysUntilStockout
	switch {
	case days <= leadTimeDays:
		return RiskCritical
	case days <= 2*leadTimeDays:
		return RiskHigh
	case days <= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AnomalyRisk maps the total anomaly count across methods to a risk level.
func AnomalyRisk(totalAnomalies int) RiskLevel {
	switch {
	case totalAnomalies > 20:
		return RiskHigh
	case totalAnomalies > 10:
		return RiskMedium
	case totalAnomalies > 5:
		return RiskLow
	default:
		return RiskMinimal
	}
}
