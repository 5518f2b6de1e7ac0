package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rxforecaster/backend-go/internal/domain"
	"github.com/rxforecaster/backend-go/internal/timeseries"
)

const (
	maxDifferencing = 2
	// 5% critical value of the Dickey-Fuller t-distribution for a
	// constant-only regression at large n.
	adfCriticalValue = -2.86
	longAROrder      = 10
)

// ARIMA is the autoregressive-integrated adapter. The differencing order
// is chosen by an augmented stationarity test, then (p,q) are grid
// searched and ranked by AIC; combinations that fail numerically are
// skipped. Estimation is two-stage least squares (long-AR residuals feed
// the moving-average terms), which keeps the whole fit deterministic.
type ARIMA struct {
	MaxP int
	MaxQ int
}

func NewARIMA(maxP, maxQ int) *ARIMA {
	if maxP <= 0 {
		maxP = 3
	}
	if maxQ <= 0 {
		maxQ = 3
	}
	return &ARIMA{MaxP: maxP, MaxQ: maxQ}
}

func (m *ARIMA) Name() string { return ModelARIMA }

// adfStationary runs an augmented Dickey-Fuller regression with one
// lagged difference term and a constant.
func adfStationary(w []float64) bool {
	if len(w) < 12 {
		return false
	}
	if sd := timeseries.Std(w); math.IsNaN(sd) || sd < 1e-8 {
		// A (near-)constant series is trivially stationary.
		return true
	}

	dw := timeseries.Diff(w)
	var rows [][]float64
	var y []float64
	for t := 1; t < len(dw); t++ {
		rows = append(rows, []float64{1, w[t], dw[t-1]})
		y = append(y, dw[t])
	}
	coef, stderr, _, err := olsWithStderr(rows, y)
	if err != nil || stderr[1] <= 0 {
		return false
	}
	tstat := coef[1] / stderr[1]
	return tstat <= adfCriticalValue
}

// chooseDifferencing differences until stationary, capped at 2.
func chooseDifferencing(y []float64) (int, []float64) {
	w := y
	d := 0
	for !adfStationary(w) && d < maxDifferencing {
		w = timeseries.Diff(w)
		d++
	}
	return d, w
}

// longARResiduals estimates innovations by fitting a long AR model;
// entries before the long-AR order are zero.
func longARResiduals(w []float64) ([]float64, int, error) {
	n := len(w)
	m := longAROrder
	if limit := n / 4; m > limit {
		m = limit
	}
	if m < 1 {
		m = 1
	}

	rows := make([][]float64, 0, n-m)
	y := make([]float64, 0, n-m)
	for t := m; t < n; t++ {
		row := make([]float64, 1+m)
		row[0] = 1
		for i := 1; i <= m; i++ {
			row[i] = w[t-i]
		}
		rows = append(rows, row)
		y = append(y, w[t])
	}
	coef, err := ridgeSolve(rows, y, nil)
	if err != nil {
		return nil, 0, err
	}

	ehat := make([]float64, n)
	for t := m; t < n; t++ {
		row := make([]float64, 1+m)
		row[0] = 1
		for i := 1; i <= m; i++ {
			row[i] = w[t-i]
		}
		ehat[t] = w[t] - predictRow(row, coef)
	}
	return ehat, m, nil
}

type armaFit struct {
	p, q   int
	c      float64
	phi    []float64
	theta  []float64
	sigma2 float64
	aic    float64
	start  int
	pred   []float64 // one-step predictions on the differenced scale, indices [start, n)
}

func fitARMA(w, ehat []float64, p, q, m int) (*armaFit, error) {
	n := len(w)
	start := p
	if q > 0 && m+q > start {
		start = m + q
	}
	k := 1 + p + q
	nObs := n - start
	if nObs < k+5 {
		return nil, errSingular
	}

	makeRow := func(t int) []float64 {
		row := make([]float64, k)
		row[0] = 1
		for i := 1; i <= p; i++ {
			row[i] = w[t-i]
		}
		for j := 1; j <= q; j++ {
			row[p+j] = ehat[t-j]
		}
		return row
	}

	rows := make([][]float64, 0, nObs)
	y := make([]float64, 0, nObs)
	for t := start; t < n; t++ {
		rows = append(rows, makeRow(t))
		y = append(y, w[t])
	}
	coef, err := ridgeSolve(rows, y, nil)
	if err != nil {
		return nil, err
	}

	fit := &armaFit{
		p:     p,
		q:     q,
		c:     coef[0],
		phi:   coef[1 : 1+p],
		theta: coef[1+p:],
		start: start,
		pred:  make([]float64, n),
	}
	var rss float64
	for t := start; t < n; t++ {
		pred := predictRow(makeRow(t), coef)
		fit.pred[t] = pred
		d := w[t] - pred
		rss += d * d
	}
	fit.sigma2 = rss / float64(nObs)
	fit.aic = float64(nObs)*math.Log(fit.sigma2+1e-10) + 2*float64(k)
	if math.IsNaN(fit.aic) || math.IsInf(fit.aic, 0) {
		return nil, errSingular
	}
	return fit, nil
}

// psiWeights computes the MA(∞) representation weights up to horizon h,
// integrated d times so forecast variance grows correctly on the
// original scale.
func (f *armaFit) psiWeights(h, d int) []float64 {
	psi := make([]float64, h)
	psi[0] = 1
	for k := 1; k < h; k++ {
		var v float64
		if k <= len(f.theta) {
			v = f.theta[k-1]
		}
		for i := 1; i <= len(f.phi) && i <= k; i++ {
			v += f.phi[i-1] * psi[k-i]
		}
		psi[k] = v
	}
	for i := 0; i < d; i++ {
		for k := 1; k < h; k++ {
			psi[k] += psi[k-1]
		}
	}
	return psi
}

func (m *ARIMA) Forecast(ctx context.Context, s *timeseries.Series, periods int) (domain.ModelForecast, error) {
	y := s.Smooth
	d, w := chooseDifferencing(y)

	ehat, longOrder, err := longARResiduals(w)
	if err != nil {
		return domain.ModelForecast{}, &domain.ModelFitError{Model: m.Name(), Err: err}
	}

	var best *armaFit
	for p := 0; p <= m.MaxP; p++ {
		for q := 0; q <= m.MaxQ; q++ {
			if err := ctx.Err(); err != nil {
				return domain.ModelForecast{}, &domain.ModelFitError{Model: m.Name(), Err: err}
			}
			fit, err := fitARMA(w, ehat, p, q, longOrder)
			if err != nil {
				continue
			}
			if best == nil || fit.aic < best.aic {
				best = fit
			}
		}
	}
	if best == nil {
		return domain.ModelForecast{}, &domain.ModelFitError{
			Model: m.Name(),
			Err:   errors.New("no (p,d,q) combination fit without numerical failure"),
		}
	}

	// Recursive forecast on the differenced scale, future innovations 0.
	histW := append([]float64(nil), w...)
	histE := append([]float64(nil), ehat...)
	diffForecast := make([]float64, periods)
	for step := 0; step < periods; step++ {
		t := len(histW)
		v := best.c
		for i := 1; i <= best.p; i++ {
			v += best.phi[i-1] * histW[t-i]
		}
		for j := 1; j <= best.q; j++ {
			v += best.theta[j-1] * histE[t-j]
		}
		diffForecast[step] = v
		histW = append(histW, v)
		histE = append(histE, 0)
	}

	levels, err := integrate(y, diffForecast, d)
	if err != nil {
		return domain.ModelForecast{}, &domain.ModelFitError{Model: m.Name(), Err: err}
	}

	psi := best.psiWeights(periods, d)
	dates := futureDates(s, periods)
	points := make([]domain.ForecastPoint, periods)
	var cumVar float64
	for i := 0; i < periods; i++ {
		cumVar += psi[i] * psi[i]
		half := intervalZ * math.Sqrt(best.sigma2*cumVar)
		point := clampNonNegative(levels[i])
		points[i] = domain.ForecastPoint{
			Date:  dates[i],
			Point: point,
			Lower: clampNonNegative(levels[i] - half),
			Upper: clampNonNegative(levels[i] + half),
		}
	}

	return domain.ModelForecast{
		ModelName: m.Name(),
		Points:    points,
		FitRMSE:   fittedRMSE(y, w, best, d),
	}, nil
}

// integrate converts differenced-scale forecasts back to level forecasts.
func integrate(y, diffForecast []float64, d int) ([]float64, error) {
	n := len(y)
	out := make([]float64, len(diffForecast))
	switch d {
	case 0:
		copy(out, diffForecast)
	case 1:
		prev := y[n-1]
		for i, v := range diffForecast {
			prev += v
			out[i] = prev
		}
	case 2:
		prevLevel := y[n-1]
		prevDiff := y[n-1] - y[n-2]
		for i, v := range diffForecast {
			prevDiff += v
			prevLevel += prevDiff
			out[i] = prevLevel
		}
	default:
		return nil, fmt.Errorf("unsupported differencing order %d", d)
	}
	return out, nil
}

// fittedRMSE re-aligns the one-step differenced predictions to the
// original scale and scores them against the actual series.
func fittedRMSE(y, w []float64, fit *armaFit, d int) float64 {
	var actual, predicted []float64
	for j := fit.start; j < len(w); j++ {
		var pred float64
		switch d {
		case 0:
			pred = fit.pred[j]
		case 1:
			// w[j] = y[j+1] - y[j]
			pred = y[j] + fit.pred[j]
		case 2:
			// w[j] = y[j+2] - 2y[j+1] + y[j]
			pred = 2*y[j+1] - y[j] + fit.pred[j]
		}
		actual = append(actual, y[j+d])
		predicted = append(predicted, pred)
	}
	return timeseries.RMSE(actual, predicted)
}
