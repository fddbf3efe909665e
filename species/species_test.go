package species

import (
	"math"
	"testing"
)

func TestGammaIsAngularLinewidth(t *testing.T) {
	got := Gamma[Rubidium87_780D2]()
	want := 2 * math.Pi * 6.065e6
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Gamma = %v, want %v", got, want)
	}
}

func TestCatalogueLinewidthsPositive(t *testing.T) {
	for _, name := range Names() {
		tr, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", name, err)
		}
		if tr.Linewidth() <= 0 {
			t.Errorf("%s: linewidth %v, want > 0", name, tr.Linewidth())
		}
		if tr.Name() != name {
			t.Errorf("%s: Name() = %q", name, tr.Name())
		}
	}
}

func TestWavelength(t *testing.T) {
	got := Wavelength[Strontium88_461]()
	if math.Abs(got-460.7e-9) > 1e-15 {
		t.Errorf("Wavelength = %v, want 460.7e-9", got)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("unobtainium"); err == nil {
		t.Error("expected error for unknown transition")
	}
}
