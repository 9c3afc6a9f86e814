// Package surrogate fits a small neural regression model to the stored
// trials and uses it to score candidate configurations without running
// a backtest. The model approximates parameters -> PnL; its suggestions
// are starting points for real evaluation, never a substitute for it.
package surrogate

import (
	"fmt"
	"math"
)

// StandardScaler centers features to zero mean and unit variance.
// Constant features scale to zero instead of dividing by zero.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-column statistics from the training matrix.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to fit scaler on")
	}
	cols := len(rows[0])

	s := &StandardScaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}

	for _, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged feature matrix: expected %d columns, got %d", cols, len(row))
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range s.Mean {
		s.Mean[j] /= n
	}

	for _, row := range rows {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}

	return s, nil
}

// Transform scales one feature vector in place-safe copy.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll scales a whole matrix.
func (s *StandardScaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
