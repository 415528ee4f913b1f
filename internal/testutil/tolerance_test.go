package testutil

import "testing"

func TestRequireSliceNearlyEqual(t *testing.T) {
	RequireSliceNearlyEqual(t, []float64{1, 2, 3}, []float64{1, 2, 3 + 1e-13}, 1e-12)
}

func TestRequireFinite(t *testing.T) {
	RequireFinite(t, []float64{0, -1, 1e300})
}

func TestRequireInUnitRange(t *testing.T) {
	RequireInUnitRange(t, "score", 0)
	RequireInUnitRange(t, "score", 0.5)
	RequireInUnitRange(t, "score", 1)
}
