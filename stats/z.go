package stats

import "gonum.org/v1/gonum/stat/distuv"

var unitNormal = distuv.UnitNormal

// ZVal is the two-tailed z-value for a confidence level given in percent,
// e.g. ZVal(95) is about 1.96.
func ZVal(confidence float64) float64 {
	return unitNormal.Quantile((1 + confidence/100) / 2)
}
