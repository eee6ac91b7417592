package imaging

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when statistics are requested over nothing.
var ErrNoSamples = errors.New("no samples")

// ByteMeanStd returns the population mean and standard deviation of 8-bit
// samples. It accumulates a histogram so large rasters are not copied into
// float slices.
func ByteMeanStd(samples []uint8) (float64, float64, error) {
	if len(samples) == 0 {
		return 0, 0, ErrNoSamples
	}
	var hist [256]uint64
	for _, v := range samples {
		hist[v]++
	}
	n := float64(len(samples))
	var sum float64
	for v, c := range hist {
		sum += float64(v) * float64(c)
	}
	mean := sum / n
	var ss float64
	for v, c := range hist {
		if c == 0 {
			continue
		}
		d := float64(v) - mean
		ss += d * d * float64(c)
	}
	return mean, math.Sqrt(ss / n), nil
}

// MeanStd returns the population mean and standard deviation of samples.
func MeanStd(samples []float64) (float64, float64, error) {
	if len(samples) == 0 {
		return 0, 0, ErrNoSamples
	}
	mean, std := stat.PopMeanStdDev(samples, nil)
	return mean, std, nil
}

// Variance returns the population variance of samples.
func Variance(samples []float64) (float64, error) {
	_, std, err := MeanStd(samples)
	if err != nil {
		return 0, err
	}
	return std * std, nil
}
