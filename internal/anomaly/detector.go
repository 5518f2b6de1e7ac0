// Package anomaly implements the consumption-pattern anomaly engine:
// four independent detectors over one prepared series, aggregated into a
// single risk summary. A failing detector is recorded and excluded; the
// analysis aborts only when series preparation itself fails.
package anomaly

import (
	"context"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

// Detector method names as recorded in results and the anomaly log.
const (
	MethodZScore        = "z_score"
	MethodModelInterval = "model_interval"
	MethodSeasonal      = "seasonal"
	MethodDemandSpike   = "demand_spike"
)

// Detector inspects the raw (unsmoothed) values of a prepared series and
// reports the anomalies its method finds.
type Detector interface {
	Name() string
	Detect(ctx context.Context, s *timeseries.Series) (domain.MethodResult, error)
}
