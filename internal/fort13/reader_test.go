package fort13

import (
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"
)

var testLogger = log.New(io.Discard, "", 0)

func writeFort13(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fort.13")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const basicFile = `test grid
10
2
bottom_roughness_length
m
1
0.025
sea_surface_height_above_geoid
m
1
0.3
bottom_roughness_length
1
5 0.05
sea_surface_height_above_geoid
0
`

func TestReadBasic(t *testing.T) {
	path := writeFort13(t, basicFile)
	res, err := New(path, "geom-1", 10, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(res.Datasets) != 1 {
		t.Fatalf("got %d datasets, want 1", len(res.Datasets))
	}
	d := res.Datasets[0]
	if d.Name != "Z0b_var" {
		t.Errorf("dataset name = %q, want Z0b_var", d.Name)
	}
	if d.GeomUUID != "geom-1" {
		t.Errorf("GeomUUID = %q", d.GeomUUID)
	}
	if d.NumComponents != 1 || len(d.Times) != 1 || d.Times[0] != 0.0 {
		t.Errorf("shape = %d comps, times %v", d.NumComponents, d.Times)
	}
	vals := d.Values[0]
	if len(vals) != 10 {
		t.Fatalf("got %d values, want 10", len(vals))
	}
	for i, v := range vals {
		want := 0.025
		if i == 4 { // node 5 in the file is index 4
			want = 0.05
		}
		if v != want {
			t.Errorf("node %d = %v, want %v", i+1, v, want)
		}
	}

	if idxs := res.ByAttribute["bottom_roughness_length"]; len(idxs) != 1 || idxs[0] != 0 {
		t.Errorf("ByAttribute = %v", res.ByAttribute)
	}
}

func TestGeoidOffsetIsConfiguration(t *testing.T) {
	path := writeFort13(t, basicFile)
	res, err := New(path, "geom-1", 10, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !res.HasGeoidOffset {
		t.Fatal("expected geoid offset")
	}
	// Mean accumulation, so compare with a tolerance.
	if math.Abs(res.GeoidOffset-0.3) > 1e-12 {
		t.Errorf("GeoidOffset = %v, want 0.3", res.GeoidOffset)
	}
	for _, d := range res.Datasets {
		if d.Name == "sea_surface_height_above_geoid" {
			t.Error("geoid offset should not become a dataset")
		}
	}
}

func TestGeoidOffsetMeanWithExceptions(t *testing.T) {
	// Exceptions against the geoid attribute collapse to the mean of the
	// resolved per-node values.
	content := `test grid
4
1
sea_surface_height_above_geoid
m
1
0.2
sea_surface_height_above_geoid
2
1 0.4
2 0.4
`
	path := writeFort13(t, content)
	res, err := New(path, "geom-1", 4, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// (0.4 + 0.4 + 0.2 + 0.2) / 4
	if got := res.GeoidOffset; math.Abs(got-0.3) > 1e-12 {
		t.Errorf("GeoidOffset = %v, want 0.3", got)
	}
}

func TestMultiComponentAttribute(t *testing.T) {
	content := `test grid
3
1
bridge_pilings_friction_paramenters
unitless
4
1.0 2.0 3.0 4.0
bridge_pilings_friction_paramenters
1
2 10.0 20.0 30.0 40.0
`
	path := writeFort13(t, content)
	res, err := New(path, "geom-1", 3, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantNames := []string{"BK", "BAlpha", "BDelX", "POAN"}
	if len(res.Datasets) != len(wantNames) {
		t.Fatalf("got %d datasets, want %d", len(res.Datasets), len(wantNames))
	}
	for i, d := range res.Datasets {
		if d.Name != wantNames[i] {
			t.Errorf("dataset %d name = %q, want %q", i, d.Name, wantNames[i])
		}
	}
	// Component 2 (BAlpha): default 2.0 except node 2 = 20.0.
	vals := res.Datasets[1].Values[0]
	want := []float64{2.0, 20.0, 2.0}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("BAlpha node %d = %v, want %v", i+1, vals[i], want[i])
		}
	}
}

func TestUnknownAttributeSynthesizedNames(t *testing.T) {
	content := `test grid
2
2
mystery_scalar
unitless
1
1.0
mystery_pair
unitless
2
1.0 2.0
mystery_scalar
0
mystery_pair
0
`
	path := writeFort13(t, content)
	res, err := New(path, "geom-1", 2, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := make([]string, len(res.Datasets))
	for i, d := range res.Datasets {
		got[i] = d.Name
	}
	want := []string{"mystery_scalar", "mystery_pair (1)", "mystery_pair (2)"}
	if len(got) != len(want) {
		t.Fatalf("dataset names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKnownAttributeUnexpectedComponentCount(t *testing.T) {
	// bottom_roughness_length is a one-component attribute, but the file
	// declares two defaults. The file's shape wins and the datasets get
	// synthesized names.
	content := `test grid
2
1
bottom_roughness_length
m
2
0.025 0.030
bottom_roughness_length
1
2 0.05 0.06
`
	path := writeFort13(t, content)
	res, err := New(path, "geom-1", 2, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"bottom_roughness_length (1)", "bottom_roughness_length (2)"}
	if len(res.Datasets) != len(want) {
		t.Fatalf("got %d datasets, want %d", len(res.Datasets), len(want))
	}
	for i, d := range res.Datasets {
		if d.Name != want[i] {
			t.Errorf("dataset %d name = %q, want %q", i, d.Name, want[i])
		}
	}
	if got := res.Datasets[1].Values[0]; got[0] != 0.030 || got[1] != 0.06 {
		t.Errorf("second component = %v", got)
	}
}

func TestCommaSeparatedValues(t *testing.T) {
	content := `test grid
3
1
bottom_roughness_length
m
1
0.025
bottom_roughness_length
1
2,0.07
`
	path := writeFort13(t, content)
	res, err := New(path, "geom-1", 3, testLogger).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := res.Datasets[0].Values[0][1]; got != 0.07 {
		t.Errorf("node 2 = %v, want 0.07", got)
	}
}

func TestBlankLinesBetweenValueBlocks(t *testing.T) {
	content := `test grid
2
1
bottom_roughness_length
m
1
0.025

bottom_roughness_length
0
`
	path := writeFort13(t, content)
	if _, err := New(path, "geom-1", 2, testLogger).Read(); err != nil {
		t.Fatalf("Read with blank separator lines: %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		geomNodes int
		wantErr   error
	}{
		{
			name:      "zero nodes",
			content:   "grid\n0\n1\n",
			geomNodes: 0,
			wantErr:   ErrInvalidFile,
		},
		{
			name:      "node count mismatch",
			content:   "grid\n10\n1\n",
			geomNodes: 12,
			wantErr:   ErrNodeCountMismatch,
		},
		{
			name:      "no attributes",
			content:   "grid\n10\n0\n",
			geomNodes: 10,
			wantErr:   ErrNoAttributes,
		},
		{
			name:      "empty file",
			content:   "",
			geomNodes: 10,
			wantErr:   ErrFileNotFound,
		},
		{
			name: "undeclared attribute in value section",
			content: `grid
2
1
bottom_roughness_length
m
1
0.025
something_else
0
`,
			geomNodes: 2,
			wantErr:   ErrInvalidFile,
		},
		{
			name: "node id out of range",
			content: `grid
2
1
bottom_roughness_length
m
1
0.025
bottom_roughness_length
1
5 0.05
`,
			geomNodes: 2,
			wantErr:   ErrInvalidFile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFort13(t, tt.content)
			_, err := New(path, "geom-1", tt.geomNodes, testLogger).Read()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Read error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.13")
	_, err := New(path, "geom-1", 10, testLogger).Read()
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Read error = %v, want ErrFileNotFound", err)
	}
}
