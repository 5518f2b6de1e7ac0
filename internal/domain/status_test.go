package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockoutRisk(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name     string
		days     *int
		leadTime int
		want     RiskLevel
	}{
		{"no stockout in horizon", nil, 5, RiskLow},
		{"within lead time", intPtr(5), 5, RiskCritical},
		{"within twice lead time", intPtr(9), 5, RiskHigh},
		{"within a month", intPtr(25), 5, RiskMedium},
		{"far out", intPtr(40), 5, RiskLow},
		{"boundary equals lead time", intPtr(7), 7, RiskCritical},
		{"boundary equals twice lead time", intPtr(14), 7, RiskHigh},
		{"boundary equals thirty days", intPtr(30), 7, RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StockoutRisk(tt.days, tt.leadTime))
		})
	}
}

func TestAnomalyRisk(t *testing.T) {
	tests := []struct {
		total int
		want  RiskLevel
	}{
		{0, RiskMinimal},
		{5, RiskMinimal},
		{6, RiskLow},
		{10, RiskLow},
		{11, RiskMedium},
		{20, RiskMedium},
		{21, RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AnomalyRisk(tt.total), "total=%d", tt.total)
	}
}

func TestRiskRankOrdersMostUrgentFirst(t *testing.T) {
	assert.Less(t, RiskCritical.Rank(), RiskHigh.Rank())
	assert.Less(t, RiskHigh.Rank(), RiskMedium.Rank())
	assert.Less(t, RiskMedium.Rank(), RiskLow.Rank())
	assert.Less(t, RiskLow.Rank(), RiskMinimal.Rank())
	assert.Equal(t, 5, RiskLevel("BOGUS").Rank())
}
