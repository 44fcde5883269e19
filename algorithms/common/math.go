package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Numeric helpers shared by detection, tracking and synthesis

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// Sum returns the sum of the slice
func Sum(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Sum(data)
}

// Slope fits a line through (i, values[i]) and returns its slope
func Slope(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}

	x := make([]float64, len(values))
	for i := range x {
		x[i] = float64(i)
	}

	_, beta := stat.LinearRegression(x, values, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0.0
	}
	return beta
}

// Clamp constrains a value to a range
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Lerp performs linear interpolation between two values
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// WrapPhase maps a phase to (-pi, pi]
func WrapPhase(phase float64) float64 {
	wrapped := math.Mod(phase+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// AmplitudeToDB converts a linear amplitude to decibels, flooring at floorDB
func AmplitudeToDB(amplitude, floorDB float64) float64 {
	if amplitude <= 0 {
		return floorDB
	}
	return math.Max(20*math.Log10(amplitude), floorDB)
}

// DBToAmplitude converts decibels to a linear amplitude
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}
