package shared

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// VariationMatrix represents the daily variation (close - open) of a set of
// instruments over a common trading-day window. Rows are trading days,
// columns are instruments.
type VariationMatrix struct {
	// Symbols are the instrument symbols, in column order.
	Symbols []string
	// Data is the days x instruments variation matrix.
	Data *mat.Dense
}

// NewVariationMatrix constructs the variation matrix from aligned quote series.
func NewVariationMatrix(series []QuoteSeries) (*VariationMatrix, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no quote series provided for variation matrix")
	}

	days := len(series[0].Quotes)
	if days == 0 {
		return nil, fmt.Errorf("quote series for %s is empty", series[0].Symbol)
	}

	symbols := make([]string, len(series))
	data := mat.NewDense(days, len(series), nil)

	for col := range series {
		if len(series[col].Quotes) != days {
			return nil, fmt.Errorf("quote series for %s has %d days, expected %d, "+
				"series must be aligned", series[col].Symbol, len(series[col].Quotes), days)
		}

		symbols[col] = series[col].Symbol
		for row := range series[col].Quotes {
			quote := &series[col].Quotes[row]
			data.Set(row, col, quote.Close-quote.Open)
		}
	}

	return &VariationMatrix{Symbols: symbols, Data: data}, nil
}

// columnStd computes the population standard deviation of the provided column.
func (v *VariationMatrix) columnStd(col int) float64 {
	rows, _ := v.Data.Dims()

	var sum float64
	for row := 0; row < rows; row++ {
		sum += v.Data.At(row, col)
	}
	mean := sum / float64(rows)

	var varianceSum float64
	for row := 0; row < rows; row++ {
		diff := v.Data.At(row, col) - mean
		varianceSum += diff * diff
	}

	return math.Sqrt(varianceSum / float64(rows))
}

// Standardize scales every instrument column by its own standard deviation,
// giving each column unit scale. A zero-variance column is an error rather
// than a silent division by zero.
func (v *VariationMatrix) Standardize() error {
	rows, cols := v.Data.Dims()

	for col := 0; col < cols; col++ {
		std := v.columnStd(col)
		if std == 0 {
			return fmt.Errorf("variation series for %s has zero variance, cannot standardize",
				v.Symbols[col])
		}

		for row := 0; row < rows; row++ {
			v.Data.Set(row, col, v.Data.At(row, col)/std)
		}
	}

	return nil
}

// Transposed returns the instruments x days view of the variation matrix,
// used when instruments are treated as the sample points.
func (v *VariationMatrix) Transposed() *mat.Dense {
	rows, cols := v.Data.Dims()

	transposed := mat.NewDense(cols, rows, nil)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			transposed.Set(col, row, v.Data.At(row, col))
		}
	}

	return transposed
}
