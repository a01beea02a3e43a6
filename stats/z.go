package stats

import "gonum.org/v1/gonum/stat/distuv"

var unitNormal = distuv.UnitNormal

// ZVal is the two-sided critical value for a confidence level given in
// percent, e.g. 95 gives about 1.96.
func ZVal(confidence float64) float64 {
	return unitNormal.Quantile(0.5 + confidence/200)
}
