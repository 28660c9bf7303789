// Package scaler turns two magnitudes into comparable bar lengths.
package scaler

import "math"

// DefaultBasis is used when the larger value gives no usable magnitude.
const DefaultBasis = 100

// Result holds the two bar lengths and the power of ten they were scaled to.
type Result struct {
	Length1 float64
	Length2 float64
	Basis   float64
}

// Scale maps v1 and v2 onto [0, maxLength]. The basis is the power of ten one
// order above the larger value, so the larger bar lands between 10% and 100%
// of maxLength. When both bars end up under half the maximum they are doubled.
func Scale(v1, v2, maxLength float64) Result {
	basis := Basis(math.Max(v1, v2))
	if !finite(maxLength) || maxLength <= 0 {
		return Result{Basis: basis}
	}

	l1 := length(v1, maxLength, basis)
	l2 := length(v2, maxLength, basis)
	if l1 < maxLength/2 && l2 < maxLength/2 {
		l1 *= 2
		l2 *= 2
	}
	return Result{Length1: l1, Length2: l2, Basis: basis}
}

// Basis returns 10^(floor(log10(v))+1), or DefaultBasis for v <= 0 or a
// non-finite v.
func Basis(v float64) float64 {
	if !finite(v) || v <= 0 {
		return DefaultBasis
	}
	exp := int(math.Floor(math.Log10(v)))
	// Log10 is not exact near powers of ten.
	if math.Pow10(exp+1) <= v {
		exp++
	} else if math.Pow10(exp) > v {
		exp--
	}
	return math.Pow10(exp + 1)
}

func length(v, maxLength, basis float64) float64 {
	if !finite(v) || v <= 0 {
		return 0
	}
	return math.Min(v*maxLength/basis, maxLength)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
