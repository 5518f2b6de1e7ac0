package anomaly

import (
	"context"
	"math"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/forecast"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// ModelBandDetector fits the seasonal trend model in-sample and flags
// days that fall outside its uncertainty interval. It also surfaces the
// trend changepoints the fit discovered.
type ModelBandDetector struct {
	model *forecast.Seasonal
}

func NewModelBandDetector(model *forecast.Seasonal) *ModelBandDetector {
	return &ModelBandDetector{model: model}
}

func (d *ModelBandDetector) Name() string { return MethodModelInterval }

func (d *ModelBandDetector) Detect(_ context.Context, s *timeseries.Series) (domain.MethodResult, error) {
	fit, err := d.model.FitInSample(s)
	if err != nil {
		return domain.MethodResult{Method: d.Name()}, err
	}

	var anomalies []domain.PointAnomaly
	for i, value := range s.Raw {
		lower, upper := fit.Lower[i], fit.Upper[i]
		if value >= lower && value <= upper {
			continue
		}
		kind := "spike"
		var dist float64
		if value > upper {
			dist = (value - upper) / math.Max(upper, 1)
		} else {
			kind = "drop"
			dist = (lower - value) / math.Max(math.Abs(lower), 1)
		}
		anomalies = append(anomalies, domain.PointAnomaly{
			Date:     s.Dates[i],
			Actual:   value,
			Expected: fit.Fitted[i],
			Lower:    lower,
			Upper:    upper,
			Score:    dist,
			Type:     kind,
		})
	}

	return domain.MethodResult{
		Method:       d.Name(),
		AnomalyCount: len(anomalies),
		Anomalies:    anomalies,
		Changepoints: fit.Changepoints,
	}, nil
}
