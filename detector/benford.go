package detector

import (
	"math"
	"strconv"
)

// BenfordExpected is the expected share of each leading digit 1..9.
var BenfordExpected = func() map[int]float64 {
	m := make(map[int]float64, 9)
	for d := 1; d <= 9; d++ {
		m[d] = math.Log10(1 + 1/float64(d))
	}
	return m
}()

type BenfordAnalysis struct {
	SampleSize int             `json:"sample_size"`
	Counts     map[int]int     `json:"counts"`
	Observed   map[int]float64 `json:"observed"`
	Expected   map[int]float64 `json:"expected"`
	Deviation  map[int]float64 `json:"deviation"`
	ChiSquare  float64         `json:"chi_square"`
	// Critical value at 8 degrees of freedom, 5% level.
	Conforms bool `json:"conforms"`
}

const benfordChiSquareCritical = 15.507

// FirstDigit returns the first significant digit of x, 0 for zero.
func FirstDigit(x float64) int {
	x = math.Abs(x)
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	s := strconv.FormatFloat(x, 'e', -1, 64)
	return int(s[0] - '0')
}

// AnalyzeBenford compares the leading digits of the positive amounts with
// the Benford distribution.
func AnalyzeBenford(amounts []float64) BenfordAnalysis {
	a := BenfordAnalysis{
		Counts:    make(map[int]int, 9),
		Observed:  make(map[int]float64, 9),
		Expected:  BenfordExpected,
		Deviation: make(map[int]float64, 9),
	}
	for _, v := range amounts {
		if v <= 0 {
			continue
		}
		if d := FirstDigit(v); d > 0 {
			a.Counts[d]++
			a.SampleSize++
		}
	}
	for d := 1; d <= 9; d++ {
		if a.SampleSize > 0 {
			a.Observed[d] = float64(a.Counts[d]) / float64(a.SampleSize)
		}
		a.Deviation[d] = math.Abs(a.Observed[d] - BenfordExpected[d])
		if a.SampleSize > 0 {
			exp := BenfordExpected[d] * float64(a.SampleSize)
			diff := float64(a.Counts[d]) - exp
			a.ChiSquare += diff * diff / exp
		}
	}
	a.Conforms = a.SampleSize > 0 && a.ChiSquare <= benfordChiSquareCritical
	return a
}
