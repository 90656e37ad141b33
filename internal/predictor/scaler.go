package predictor

import "gonum.org/v1/gonum/stat"

// standardScaler centers and scales features column-wise. It is fitted on
// the training split only, so held-out evaluation never leaks test rows.
type standardScaler struct {
	means []float64
	stds  []float64
}

// fitScaler computes column means and sample standard deviations over X.
func fitScaler(X [][]float64) *standardScaler {
	if len(X) == 0 {
		return &standardScaler{}
	}
	dims := len(X[0])
	s := &standardScaler{
		means: make([]float64, dims),
		stds:  make([]float64, dims),
	}
	col := make([]float64, len(X))
	for j := 0; j < dims; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		s.means[j], s.stds[j] = stat.MeanStdDev(col, nil)
	}
	return s
}

// transform returns the scaled copy of one feature row. Constant columns
// pass through centered only.
func (s *standardScaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v - s.means[j]
		if s.stds[j] > 0 {
			out[j] /= s.stds[j]
		}
	}
	return out
}

// transformAll scales every row of X.
func (s *standardScaler) transformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.transform(row)
	}
	return out
}
