package template

import (
	"testing"

	"github.com/cwbudde/algo-specid/feature"
)

func TestLibraryRoundTrip(t *testing.T) {
	lib := NewLibrary()

	set := &ExpectationSet{
		Modality: feature.ModalityRaman,
		Source:   "rruff@1.0",
		Expected: []ExpectedFeature{{Center: 520, LibrarySigma: 2}},
	}
	if err := lib.AddExpectations("quartz", set); err != nil {
		t.Fatalf("AddExpectations: %v", err)
	}

	dense := &Dense{
		Modality: feature.ModalityInfrared,
		Source:   "hitran@2020",
		Start:    400, Step: 0.5,
		Samples: []float64{0, 1, 0},
	}
	if err := lib.AddDense("quartz", dense); err != nil {
		t.Fatalf("AddDense: %v", err)
	}

	got, ok := lib.Expectations("quartz", feature.ModalityRaman)
	if !ok || got.Source != "rruff@1.0" {
		t.Fatalf("Expectations = %+v, %v", got, ok)
	}
	if _, ok := lib.Expectations("quartz", feature.ModalityInfrared); ok {
		t.Fatal("unexpected sparse set under dense modality")
	}

	gd, ok := lib.DenseTemplate("quartz", feature.ModalityInfrared)
	if !ok || gd.Source != "hitran@2020" {
		t.Fatalf("DenseTemplate = %+v, %v", gd, ok)
	}
}

func TestLibraryRejectsInvalid(t *testing.T) {
	lib := NewLibrary()
	err := lib.AddExpectations("x", &ExpectationSet{Modality: feature.ModalityRaman, Source: "no-version"})
	if err == nil {
		t.Fatal("invalid expectation set must be rejected")
	}
}

func TestLibraryVersionsSorted(t *testing.T) {
	lib := NewLibrary()
	_ = lib.AddExpectations("a", &ExpectationSet{
		Modality: feature.ModalityRaman, Source: "zlib@2",
		Expected: []ExpectedFeature{{Center: 1, LibrarySigma: 1}},
	})
	_ = lib.AddDense("a", &Dense{
		Modality: feature.ModalityInfrared, Source: "alib@1",
		Start: 0, Step: 1, Samples: []float64{1},
	})

	got := lib.Versions()
	if len(got) != 2 || got[0] != "alib@1" || got[1] != "zlib@2" {
		t.Fatalf("Versions = %v, want [alib@1 zlib@2]", got)
	}
}
