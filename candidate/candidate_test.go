package candidate

import (
	"errors"
	"testing"
)

func testCatalog() *Catalog {
	return &Catalog{Entries: []Entry{
		{Label: "halite", RequiredElements: []string{"Na", "Cl"}, Phase: PhaseSolid},
		{Label: "sylvite", RequiredElements: []string{"K", "Cl"}, Phase: PhaseSolid},
		{Label: "calcite", RequiredElements: []string{"Ca"}, ForbiddenElements: []string{"S"}},
		{Label: "gypsum", RequiredElements: []string{"Ca", "S"}, TempMin: 0, TempMax: 330},
		{Label: "brine", RequiredElements: []string{"Na"}, Phase: PhaseLiquid, Solvent: "water"},
	}}
}

func labels(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func TestGenerateRequiredElements(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{Elements: []string{"Na", "Cl"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"halite"}
	assertLabels(t, got, want)
}

func TestGenerateForbiddenElements(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{Elements: []string{"Ca", "S"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// calcite forbids S; gypsum requires Ca+S.
	assertLabels(t, got, []string{"gypsum"})
}

func TestGeneratePhaseConstraint(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{
		Elements: []string{"Na", "Cl"},
		Phase:    PhaseLiquid,
		Solvent:  "water",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// halite requires solid phase; brine matches liquid + water.
	assertLabels(t, got, []string{"brine"})
}

func TestGenerateTemperatureConstraint(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{
		Elements:    []string{"Ca", "S"},
		Temperature: 400,
		HasTemp:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// gypsum dehydrates above its range.
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", labels(got))
	}
}

func TestGenerateOverridesWinLast(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{
		Elements:  []string{"Na", "Cl"},
		Whitelist: []string{"calcite"},
		Blacklist: []string{"halite"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// halite passed the rules but is blacklisted; calcite failed the rules
	// but is whitelisted.
	assertLabels(t, got, []string{"calcite"})
}

func TestGenerateEmptyIsClean(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{})
	if err != nil {
		t.Fatalf("empty candidate set must not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", labels(got))
	}
}

func TestGenerateSortedByLabel(t *testing.T) {
	got, err := Generate(testCatalog(), Gates{Elements: []string{"Na", "Cl", "K", "Ca"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertLabels(t, got, []string{"calcite", "halite", "sylvite"})
}

func TestCatalogValidate(t *testing.T) {
	bad := &Catalog{Entries: []Entry{{Label: "x"}, {Label: "x"}}}
	if _, err := Generate(bad, Gates{}); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("err = %v, want ErrDuplicateLabel", err)
	}

	empty := &Catalog{Entries: []Entry{{}}}
	if _, err := Generate(empty, Gates{}); !errors.Is(err, ErrEmptyLabel) {
		t.Fatalf("err = %v, want ErrEmptyLabel", err)
	}
}

func assertLabels(t *testing.T, got []Entry, want []string) {
	t.Helper()
	gl := labels(got)
	if len(gl) != len(want) {
		t.Fatalf("labels = %v, want %v", gl, want)
	}
	for i := range want {
		if gl[i] != want[i] {
			t.Fatalf("labels = %v, want %v", gl, want)
		}
	}
}
