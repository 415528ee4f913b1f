package numeric

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{"inside range", 0.5, 0, 1, 0.5},
		{"below min", -0.2, 0, 1, 0},
		{"above max", 1.7, 0, 1, 1},
		{"swapped bounds", 0.5, 1, 0, 0.5},
		{"at min", 0, 0, 1, 0},
		{"at max", 1, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp(%v, %v, %v) = %v, want %v", tt.value, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}

func TestLogLink(t *testing.T) {
	// f(0.5) must be zero for any epsilon: the link is symmetric around 0.5.
	if got := LogLink(0.5, 1e-6); math.Abs(got) > 1e-12 {
		t.Fatalf("LogLink(0.5) = %v, want 0", got)
	}

	// Endpoints stay finite.
	for _, s := range []float64{0, 1} {
		if v := LogLink(s, 1e-6); math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("LogLink(%v) = %v, want finite", s, v)
		}
	}

	// Strictly increasing on a sample grid.
	prev := math.Inf(-1)
	for s := 0.0; s <= 1.0; s += 0.05 {
		v := LogLink(s, 1e-6)
		if v <= prev {
			t.Fatalf("LogLink not increasing at s=%v: %v <= %v", s, v, prev)
		}
		prev = v
	}

	// Out-of-range inputs are clamped, not propagated.
	if got, want := LogLink(1.5, 1e-6), LogLink(1, 1e-6); got != want {
		t.Fatalf("LogLink(1.5) = %v, want LogLink(1) = %v", got, want)
	}
}

func TestLogistic(t *testing.T) {
	if got := Logistic(0); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("Logistic(0) = %v, want 0.5", got)
	}
	if got := Logistic(1000); got != 1 {
		t.Fatalf("Logistic(1000) = %v, want 1", got)
	}
	if got := Logistic(-1000); got != 0 {
		t.Fatalf("Logistic(-1000) = %v, want 0", got)
	}
}

func TestLogisticInvertsLogLink(t *testing.T) {
	// With a tiny epsilon the pair behaves as inverse maps away from the
	// endpoints.
	for _, s := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		got := Logistic(LogLink(s, 1e-9))
		if math.Abs(got-s) > 1e-6 {
			t.Fatalf("round trip at s=%v: got %v", s, got)
		}
	}
}

func TestFisherZ(t *testing.T) {
	tests := []struct {
		name string
		c    float64
	}{
		{"zero correlation", 0},
		{"positive", 0.8},
		{"negative", -0.8},
		{"unit", 1},
		{"negative unit", -1},
		{"out of range", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FisherZ(tt.c)
			if math.IsNaN(got) || got < 0 || got > 1 {
				t.Fatalf("FisherZ(%v) = %v, want value in [0,1]", tt.c, got)
			}
		})
	}

	if FisherZ(0) != 0.5 {
		t.Fatalf("FisherZ(0) = %v, want 0.5", FisherZ(0))
	}
	if FisherZ(0.9) <= FisherZ(0.5) {
		t.Fatal("FisherZ must be increasing")
	}
}

func TestRescaleUnit(t *testing.T) {
	if got := RescaleUnit(-1); got != 0 {
		t.Fatalf("RescaleUnit(-1) = %v, want 0", got)
	}
	if got := RescaleUnit(1); got != 1 {
		t.Fatalf("RescaleUnit(1) = %v, want 1", got)
	}
	if got := RescaleUnit(0); got != 0.5 {
		t.Fatalf("RescaleUnit(0) = %v, want 0.5", got)
	}
}
