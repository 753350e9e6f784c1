// Package round holds the display rounding shared by the calculators.
package round

import (
	"math"
	"strconv"
)

// R1 rounds to 0.1 with halves going up, so R1(0.05) is 0.1 and R1(-0.05) is 0.
func R1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Fixed formats v with n decimals after rounding with R1 semantics at that precision.
func Fixed(v float64, n int) string {
	p := math.Pow(10, float64(n))
	r := math.Floor(v*p+0.5) / p
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', n, 64)
}

// V1 is the one-decimal volume string used on syringe cards.
func V1(v float64) string { return Fixed(v, 1) }

// Num prints v in its shortest form, the way numbers appear inside messages.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Visible reports whether a volume survives rounding to 0.1 mL.
func Visible(v float64) bool {
	return R1(math.Abs(v)) > 0
}
