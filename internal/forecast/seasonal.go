package forecast

import (
	"context"
	"math"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

const (
	candidateChangepoints = 25
	// Candidate changepoints are placed over the first 80% of history so
	// the final trend segment stays stable for extrapolation.
	changepointRange = 0.8
	// A trend slope delta below this magnitude is noise, not a changepoint.
	changepointDeltaThreshold = 0.01

	weeklyPeriod  = 7.0
	weeklyOrder   = 3
	monthlyPeriod = 30.5
	monthlyOrder  = 5
	yearlyPeriod  = 365.25
	yearlyOrder   = 10
	// Yearly terms need close to a full cycle of history or they just
	// soak up noise.
	yearlyMinSpan = 365

	intervalZ = 1.96
)

// Seasonal fits a piecewise-linear trend with multiplicative weekly,
// monthly (30.5-day) and yearly seasonal components. Its detected
// changepoints are surfaced for reuse by anomaly detection.
type Seasonal struct{}

func NewSeasonal() *Seasonal { return &Seasonal{} }

func (m *Seasonal) Name() string { return ModelSeasonal }

type harmonic struct {
	period float64
	order  int
}

type seasonalState struct {
	n            int
	trendCoef    []float64 // intercept, base slope, changepoint deltas
	cpIdx        []int
	harmonics    []harmonic
	seasCoef     []float64
	fitted       []float64
	sigma        float64
	changepoints []domain.Day
}

func (st *seasonalState) trendAt(t float64) float64 {
	v := st.trendCoef[0] + st.trendCoef[1]*t
	for j, idx := range st.cpIdx {
		if h := t - float64(idx); h > 0 {
			v += st.trendCoef[2+j] * h
		}
	}
	return v
}

func (st *seasonalState) seasonalAt(t float64) float64 {
	if len(st.seasCoef) == 0 {
		return 1
	}
	factor := 1 + predictRow(fourierRow(t, st.harmonics), st.seasCoef)
	// A seasonal factor below zero would flip the trend sign.
	if factor < 0 {
		return 0
	}
	return factor
}

func (st *seasonalState) predictAt(t float64) float64 {
	return clampNonNegative(st.trendAt(t) * st.seasonalAt(t))
}

func fourierRow(t float64, harmonics []harmonic) []float64 {
	row := make([]float64, 0, 2*(weeklyOrder+monthlyOrder+yearlyOrder))
	for _, h := range harmonics {
		for k := 1; k <= h.order; k++ {
			arg := 2 * math.Pi * float64(k) * t / h.period
			row = append(row, math.Cos(arg), math.Sin(arg))
		}
	}
	return row
}

func (m *Seasonal) fit(s *timeseries.Series, values []float64) (*seasonalState, error) {
	n := len(values)
	if n < timeseries.MinSamples {
		return nil, &domain.ModelFitError{Model: m.Name(), Err: errSingular}
	}

	st := &seasonalState{n: n}

	// Uniformly spaced candidate changepoints over the first 80%.
	nCand := candidateChangepoints
	if limit := n / 4; nCand > limit {
		nCand = limit
	}
	seen := map[int]bool{}
	for i := 1; i <= nCand; i++ {
		idx := int(changepointRange * float64(n) * float64(i) / float64(nCand+1))
		if idx >= 1 && idx < n-1 && !seen[idx] {
			seen[idx] = true
			st.cpIdx = append(st.cpIdx, idx)
		}
	}

	// Piecewise-linear trend: hinge basis per candidate changepoint, L2
	// penalty on the deltas only so the trend stays stiff.
	k := 2 + len(st.cpIdx)
	rows := make([][]float64, n)
	penalty := make([]float64, k)
	for j := 2; j < k; j++ {
		penalty[j] = float64(n)
	}
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		row[0] = 1
		row[1] = float64(i)
		for j, idx := range st.cpIdx {
			if h := float64(i - idx); h > 0 {
				row[2+j] = h
			}
		}
		rows[i] = row
	}
	trendCoef, err := ridgeSolve(rows, values, penalty)
	if err != nil {
		return nil, &domain.ModelFitError{Model: m.Name(), Err: err}
	}
	st.trendCoef = trendCoef

	for j, idx := range st.cpIdx {
		if math.Abs(trendCoef[2+j]) > changepointDeltaThreshold {
			st.changepoints = append(st.changepoints, s.Dates[idx])
		}
	}

	st.harmonics = []harmonic{
		{period: weeklyPeriod, order: weeklyOrder},
		{period: monthlyPeriod, order: monthlyOrder},
	}
	if n >= yearlyMinSpan {
		st.harmonics = append(st.harmonics, harmonic{period: yearlyPeriod, order: yearlyOrder})
	}

	// Multiplicative seasonality on the ratio to trend. Ratios explode
	// where the trend vanishes, so such rows are skipped and the rest
	// clamped to a sane range.
	var seasRows [][]float64
	var seasY []float64
	for i := 0; i < n; i++ {
		trend := st.trendAt(float64(i))
		if trend <= 1e-8 {
			continue
		}
		ratio := values[i]/trend - 1
		if ratio > 3 {
			ratio = 3
		} else if ratio < -1 {
			ratio = -1
		}
		seasRows = append(seasRows, fourierRow(float64(i), st.harmonics))
		seasY = append(seasY, ratio)
	}
	if len(seasRows) >= 4*len(st.harmonics) {
		width := len(seasRows[0])
		seasPenalty := make([]float64, width)
		for i := range seasPenalty {
			seasPenalty[i] = 1
		}
		if coef, err := ridgeSolve(seasRows, seasY, seasPenalty); err == nil {
			st.seasCoef = coef
		}
	}

	st.fitted = make([]float64, n)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		st.fitted[i] = st.predictAt(float64(i))
		resid[i] = values[i] - st.fitted[i]
	}
	if sigma := timeseries.Std(resid); !math.IsNaN(sigma) {
		st.sigma = sigma
	}

	return st, nil
}

func (m *Seasonal) Forecast(ctx context.Context, s *timeseries.Series, periods int) (domain.ModelForecast, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModelForecast{}, &domain.ModelFitError{Model: m.Name(), Err: err}
	}
	st, err := m.fit(s, s.Smooth)
	if err != nil {
		return domain.ModelForecast{}, err
	}

	dates := futureDates(s, periods)
	points := make([]domain.ForecastPoint, periods)
	for i := 0; i < periods; i++ {
		point := st.predictAt(float64(st.n + i))
		points[i] = domain.ForecastPoint{
			Date:  dates[i],
			Point: point,
			Lower: clampNonNegative(point - intervalZ*st.sigma),
			Upper: point + intervalZ*st.sigma,
		}
	}

	return domain.ModelForecast{
		ModelName:    m.Name(),
		Points:       points,
		FitRMSE:      timeseries.RMSE(s.Smooth, st.fitted),
		Changepoints: st.changepoints,
	}, nil
}

// InSampleFit holds the seasonal model's fit over the observed window,
// used by the model-based anomaly check.
type InSampleFit struct {
	Fitted       []float64
	Lower        []float64
	Upper        []float64
	Sigma        float64
	Changepoints []domain.Day
}

// FitInSample fits the model to the raw (unsmoothed) series and returns
// the in-sample confidence band and detected changepoints.
func (m *Seasonal) FitInSample(s *timeseries.Series) (*InSampleFit, error) {
	st, err := m.fit(s, s.Raw)
	if err != nil {
		return nil, err
	}
	fit := &InSampleFit{
		Fitted:       st.fitted,
		Lower:        make([]float64, st.n),
		Upper:        make([]float64, st.n),
		Sigma:        st.sigma,
		Changepoints: st.changepoints,
	}
	for i := 0; i < st.n; i++ {
		fit.Lower[i] = clampNonNegative(st.fitted[i] - intervalZ*st.sigma)
		fit.Upper[i] = st.fitted[i] + intervalZ*st.sigma
	}
	return fit, nil
}
