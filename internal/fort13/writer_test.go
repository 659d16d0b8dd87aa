package fort13

import (
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	// Sparse encode then decode resolves to the same dense arrays.
	atts := []Attribute{
		{
			Name:     "bottom_roughness_length",
			Units:    "m",
			Defaults: []float64{0.025},
			Values:   [][]float64{{0.025, 0.05, 0.025, 0.07, 0.025}},
		},
		{
			Name:     "bridge_pilings_friction_paramenters",
			Defaults: []float64{1.0, 2.0, 3.0, 4.0},
			Values: [][]float64{
				{1.0, 1.0, 9.0, 1.0, 1.0},
				{2.0, 2.0, 8.0, 2.0, 2.0},
				{3.0, 3.0, 3.0, 3.0, 3.0},
				{4.0, 4.0, 4.0, 4.0, 4.0},
			},
		},
	}
	path := filepath.Join(t.TempDir(), "fort.13")
	if err := Write(path, "round trip", 5, atts); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := New(path, "geom-1", 5, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(res.Datasets) != 5 { // 1 scalar + 4 bridge components
		t.Fatalf("got %d datasets, want 5", len(res.Datasets))
	}
	for i, want := range atts[0].Values[0] {
		if got := res.Datasets[0].Values[0][i]; got != want {
			t.Errorf("roughness node %d = %v, want %v", i+1, got, want)
		}
	}
	for k := 0; k < 4; k++ {
		d := res.Datasets[res.ByAttribute["bridge_pilings_friction_paramenters"][k]]
		for i, want := range atts[1].Values[k] {
			if got := d.Values[0][i]; got != want {
				t.Errorf("bridge component %d node %d = %v, want %v", k, i+1, got, want)
			}
		}
	}
}

func TestWriteValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fort.13")
	err := Write(path, "bad", 3, []Attribute{{
		Name:     "bottom_roughness_length",
		Defaults: []float64{0.025},
		Values:   [][]float64{{0.025, 0.05}}, // 2 values for 3 nodes
	}})
	if err == nil {
		t.Error("expected error for short value array")
	}
}
