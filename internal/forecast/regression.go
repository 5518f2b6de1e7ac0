package forecast

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("design matrix is singular")

// ridgeSolve fits y ≈ X·β by least squares through the normal equations,
// with an optional per-coefficient L2 penalty (nil penalty means plain
// OLS). rows are the rows of X.
func ridgeSolve(rows [][]float64, y []float64, penalty []float64) ([]float64, error) {
	n := len(rows)
	if n == 0 || n != len(y) {
		return nil, errSingular
	}
	k := len(rows[0])
	if k == 0 || n < k {
		return nil, errSingular
	}

	m := mat.NewDense(k, k, nil)
	rhs := mat.NewVecDense(k, nil)
	for _, row := range rows {
		if len(row) != k {
			return nil, errSingular
		}
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			var sum float64
			for r := 0; r < n; r++ {
				sum += rows[r][i] * rows[r][j]
			}
			m.Set(i, j, sum)
			m.Set(j, i, sum)
		}
		var rs float64
		for r := 0; r < n; r++ {
			rs += rows[r][i] * y[r]
		}
		rhs.SetVec(i, rs)
	}
	if penalty != nil {
		for i := 0; i < k && i < len(penalty); i++ {
			m.Set(i, i, m.At(i, i)+penalty[i])
		}
	}

	var sol mat.VecDense
	if err := sol.SolveVec(m, rhs); err != nil {
		return nil, errSingular
	}

	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		c := sol.AtVec(i)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errSingular
		}
		coef[i] = c
	}
	return coef, nil
}

// olsWithStderr fits y ≈ X·β and additionally returns the coefficient
// standard errors and the residual sum of squares, for t-statistics.
func olsWithStderr(rows [][]float64, y []float64) (coef, stderr []float64, rss float64, err error) {
	coef, err = ridgeSolve(rows, y, nil)
	if err != nil {
		return nil, nil, 0, err
	}
	n := len(rows)
	k := len(coef)

	for r := 0; r < n; r++ {
		var pred float64
		for j := 0; j < k; j++ {
			pred += rows[r][j] * coef[j]
		}
		d := y[r] - pred
		rss += d * d
	}
	dof := n - k
	if dof < 1 {
		return nil, nil, 0, errSingular
	}
	sigma2 := rss / float64(dof)

	m := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			var sum float64
			for r := 0; r < n; r++ {
				sum += rows[r][i] * rows[r][j]
			}
			m.Set(i, j, sum)
			m.Set(j, i, sum)
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, nil, 0, errSingular
	}

	stderr = make([]float64, k)
	for i := 0; i < k; i++ {
		v := sigma2 * inv.At(i, i)
		if v < 0 {
			v = 0
		}
		stderr[i] = math.Sqrt(v)
	}
	return coef, stderr, rss, nil
}

func predictRow(row, coef []float64) float64 {
	var p float64
	for i := range coef {
		p += row[i] * coef[i]
	}
	return p
}
