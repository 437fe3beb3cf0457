package numerical

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Transforms accepted by Transform and Decimate.
const (
	Mean   = "mean"
	Max    = "max"
	Min    = "min"
	AbsMax = "absmax"
	First  = "first"
)

// ValidTransform reports whether transform is one Transform understands.
func ValidTransform(transform string) bool {
	switch transform {
	case Mean, Max, Min, AbsMax, First:
		return true
	}
	return false
}

func SuppressNaN(num float64) float64 {
	if math.IsNaN(num) {
		return 0
	}
	return num
}

// Transform reduces dataIn to a single value. Unknown transforms give 0.
func Transform(dataIn []float64, transform string) float64 {
	if len(dataIn) == 0 {
		return 0
	}
	switch transform {
	case Mean:
		return SuppressNaN(stat.Mean(dataIn, nil))
	case Max:
		return SuppressNaN(floats.Max(dataIn))
	case Min:
		return SuppressNaN(floats.Min(dataIn))
	case AbsMax:
		// Keeps the sign of the value with the largest magnitude.
		hi, lo := floats.Max(dataIn), floats.Min(dataIn)
		if math.Abs(lo) > math.Abs(hi) {
			return SuppressNaN(lo)
		}
		return SuppressNaN(hi)
	case First:
		return SuppressNaN(dataIn[0])
	default:
		return 0
	}
}

// Decimate reduces datain to outxsize points, each the transform of one
// bucket of consecutive input values. Input no longer than outxsize is
// returned as a copy.
func Decimate(datain []float64, outxsize int, transform string) []float64 {
	if outxsize < 1 || len(datain) <= outxsize {
		return append([]float64(nil), datain...)
	}

	outData := make([]float64, outxsize)
	elementsPerOutput := float64(len(datain)) / float64(outxsize)
	elementsPerOutputCeil := int(math.Ceil(elementsPerOutput))

	for x := 0; x < outxsize; x++ {
		var startElement, endElement int
		if x != outxsize-1 {
			startElement = int(math.Round(float64(x) * elementsPerOutput))
			endElement = startElement + elementsPerOutputCeil
		} else {
			// Last output point, work backwards from the last element.
			endElement = len(datain)
			startElement = endElement - elementsPerOutputCeil
		}
		if endElement > len(datain) {
			endElement = len(datain)
		}
		outData[x] = Transform(datain[startElement:endElement], transform)
	}
	return outData
}
