package score

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/internal/testutil"
	"github.com/cwbudde/algo-specid/rubric"
)

func testQualityCoeffs() rubric.QualityCoeffs {
	return rubric.QualityCoeffs{A: 0.5, B: 0.5, C: 0.5, TauRMS: 1, TauFWHM: 1, TauSNR: 10}
}

func TestQuality(t *testing.T) {
	tests := []struct {
		name     string
		qc       feature.QC
		expected float64
	}{
		{
			name:     "perfect instrument",
			qc:       feature.QC{CalibrationRMS: 0, FWHMDeviation: 0, SNR: 1e9},
			expected: 1.0,
		},
		{
			name: "moderate degradation",
			// 1 - 0.5*0.4 - 0.5*0.2 - 0.5*(10/50) = 1 - 0.2 - 0.1 - 0.1
			qc:       feature.QC{CalibrationRMS: 0.4, FWHMDeviation: 0.2, SNR: 50},
			expected: 0.6,
		},
		{
			name:     "poor metrics hit the floor",
			qc:       feature.QC{CalibrationRMS: 5, FWHMDeviation: 5, SNR: 1},
			expected: 0.3,
		},
		{
			name:     "zero SNR hits the floor",
			qc:       feature.QC{SNR: 0},
			expected: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quality(tt.qc, testQualityCoeffs())
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Fatalf("Quality = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestQualityBounds(t *testing.T) {
	// Any metric combination must land in [0.3, 1.0].
	for _, rms := range []float64{0, 0.5, 10} {
		for _, snr := range []float64{0, 1, 1e6} {
			q := Quality(feature.QC{CalibrationRMS: rms, SNR: snr}, testQualityCoeffs())
			if q < 0.3 || q > 1.0 {
				t.Fatalf("Quality(rms=%v, snr=%v) = %v outside [0.3, 1]", rms, snr, q)
			}
			testutil.RequireFinite(t, []float64{q})
		}
	}
}
