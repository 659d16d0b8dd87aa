package solution

import (
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/coastalkit/adcirc/internal/models"
)

var testLogger = log.New(io.Discard, "", 0)

func writeSolution(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func newTestImporter(geomNodes int) *Importer {
	return NewImporter("geom-1", geomNodes, testLogger)
}

const denseScalar = `run description
2 3 300.0 300 1
300.0 1
1 0.5
2 0.6
3 0.7
600.0 2
1 0.8
2 0.9
3 1.0
`

func TestReadDenseScalar(t *testing.T) {
	path := writeSolution(t, "fort.63", denseScalar)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(dsets) != 1 {
		t.Fatalf("got %d datasets, want 1", len(dsets))
	}
	d := dsets[0]
	if d.Name != "Water Surface (eta)" {
		t.Errorf("name = %q", d.Name)
	}
	if d.GeomUUID != "geom-1" || d.NumComponents != 1 || d.Extreme {
		t.Errorf("dataset = %+v", d)
	}
	if len(d.Times) != 2 || d.Times[0] != 300.0 || d.Times[1] != 600.0 {
		t.Errorf("Times = %v", d.Times)
	}
	want := []float64{0.8, 0.9, 1.0}
	for i, v := range want {
		if d.Values[1][i] != v {
			t.Errorf("timestep 2 node %d = %v, want %v", i+1, d.Values[1][i], v)
		}
	}
}

func TestReadSparseScalar(t *testing.T) {
	// The timestep line carries a record count and a fill default; only the
	// listed nodes differ.
	content := `run description
1 3 300.0 300 1
300.0 1 1 0.0
2 7.5
`
	path := writeSolution(t, "fort.63", content)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := dsets[0].Values[0]
	want := []float64{0.0, 7.5, 0.0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d = %v, want %v", i+1, got[i], want[i])
		}
	}
}

func TestReadVector(t *testing.T) {
	content := `run description
1 2 300.0 300 2
300.0 1
1 0.1 0.2
2 0.3 0.4
`
	path := writeSolution(t, "fort.64", content)
	dsets, err := newTestImporter(2).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	d := dsets[0]
	if d.Name != "Current Velocity (curr)" || d.NumComponents != 2 {
		t.Errorf("dataset = %q, %d components", d.Name, d.NumComponents)
	}
	// Components are interleaved per node.
	want := []float64{0.1, 0.2, 0.3, 0.4}
	for i := range want {
		if d.Values[0][i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, d.Values[0][i], want[i])
		}
	}
	if d.Value(0, 1, 1) != 0.4 {
		t.Errorf("Value(0,1,1) = %v, want 0.4", d.Value(0, 1, 1))
	}
}

func TestReadSparseVector(t *testing.T) {
	content := `run description
1 3 300.0 300 2
300.0 1 1 -99999.0 -99999.0
2 0.3 0.4
`
	path := writeSolution(t, "fort.64", content)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := dsets[0].Values[0]
	want := []float64{-99999.0, -99999.0, 0.3, 0.4, -99999.0, -99999.0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, got[i], want[i])
		}
	}
}

const maxFile = `run description
2 3 300.0 300 1
1036800.0 1
1 1.5
2 2.0
3 -99999.0
1036800.0 2
1 3600.0
2 7200.0
3 -99999.0
`

func TestReadMaxPair(t *testing.T) {
	path := writeSolution(t, "maxele.63", maxFile)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(dsets) != 2 {
		t.Fatalf("got %d datasets, want 2", len(dsets))
	}
	if dsets[0].Name != "Max eta" || dsets[1].Name != "Max eta Time" {
		t.Errorf("names = %q, %q", dsets[0].Name, dsets[1].Name)
	}
	for _, d := range dsets {
		if !d.Extreme {
			t.Errorf("%s not marked extreme", d.Name)
		}
		if len(d.Times) != 1 || len(d.Values) != 1 {
			t.Errorf("%s shape = %d times", d.Name, len(d.Times))
		}
	}
	if dsets[0].Values[0][1] != 2.0 || dsets[1].Values[0][1] != 7200.0 {
		t.Errorf("values = %v / %v", dsets[0].Values[0], dsets[1].Values[0])
	}
	if dsets[0].Values[0][2] != models.NullValue {
		t.Errorf("null sentinel = %v", dsets[0].Values[0][2])
	}
}

func TestTruncatedTimestepDropped(t *testing.T) {
	// The second timestep promises 3 values but the file ends after 1. The
	// default behavior keeps what decoded cleanly.
	content := `run description
2 3 300.0 300 1
300.0 1
1 0.5
2 0.6
3 0.7
600.0 2
1 0.8
`
	path := writeSolution(t, "fort.63", content)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(dsets[0].Times) != 1 {
		t.Errorf("got %d timesteps, want 1", len(dsets[0].Times))
	}

	im := newTestImporter(3)
	im.Strict = true
	if _, err := im.ReadFile(path); !errors.Is(err, ErrIncorrectValueCount) {
		t.Errorf("strict error = %v, want ErrIncorrectValueCount", err)
	}
}

func TestSparseNodeIDOutOfRange(t *testing.T) {
	// A corrupt sparse record must surface as an error, not a panic, so the
	// batch driver can skip the file.
	scalar := `run description
1 3 300.0 300 1
300.0 1 1 0.0
999 7.5
`
	path := writeSolution(t, "fort.63", scalar)
	if _, err := newTestImporter(3).ReadFile(path); !errors.Is(err, ErrIncorrectValueCount) {
		t.Errorf("scalar error = %v, want ErrIncorrectValueCount", err)
	}

	vector := `run description
1 3 300.0 300 2
300.0 1 1 0.0 0.0
0 0.3 0.4
`
	path = writeSolution(t, "fort.64", vector)
	if _, err := newTestImporter(3).ReadFile(path); !errors.Is(err, ErrIncorrectValueCount) {
		t.Errorf("vector error = %v, want ErrIncorrectValueCount", err)
	}
}

func TestReadAllSurvivesCorruptSparseFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "fort.63")
	corrupt := `run description
1 3 300.0 300 1
300.0 1 1 0.0
999 7.5
`
	if err := os.WriteFile(bad, []byte(corrupt), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "fort.73")
	pressure := `run description
1 3 300.0 300 1
300.0 1
1 101.0
2 102.0
3 103.0
`
	if err := os.WriteFile(good, []byte(pressure), 0o644); err != nil {
		t.Fatal(err)
	}

	dsets, err := newTestImporter(3).ReadAll([]string{bad, good})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(dsets) != 1 || dsets[0].Name != "Atmospheric Pressure" {
		t.Errorf("datasets = %d, first %q", len(dsets), dsets[0].Name)
	}
}

func TestNodeCountMismatch(t *testing.T) {
	path := writeSolution(t, "fort.63", denseScalar)
	_, err := newTestImporter(5).ReadFile(path)
	if !errors.Is(err, ErrIncorrectValueCount) {
		t.Errorf("ReadFile error = %v, want ErrIncorrectValueCount", err)
	}
}

const harmonicScalar = `2
0.000140525700 1.0 0.0 M2
0.000145444104 1.0 0.0 S2
3
1
0.50 10.0
0.30 20.0
2
0.60 11.0
0.35 21.0
3
0.70 12.0
0.40 22.0
`

func TestReadHarmonicScalar(t *testing.T) {
	path := writeSolution(t, "fort.53", harmonicScalar)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantNames := []string{
		"M2 Elevation Amplitude", "M2 Elevation Phase",
		"S2 Elevation Amplitude", "S2 Elevation Phase",
	}
	if len(dsets) != len(wantNames) {
		t.Fatalf("got %d datasets, want %d", len(dsets), len(wantNames))
	}
	for i, d := range dsets {
		if d.Name != wantNames[i] {
			t.Errorf("dataset %d name = %q, want %q", i, d.Name, wantNames[i])
		}
	}
	// M2 amplitude per node, S2 phase per node.
	if got := dsets[0].Values[0]; got[0] != 0.50 || got[2] != 0.70 {
		t.Errorf("M2 amplitude = %v", got)
	}
	if got := dsets[3].Values[0]; got[1] != 21.0 {
		t.Errorf("S2 phase = %v", got)
	}
}

func TestReadHarmonicVector(t *testing.T) {
	content := `1
0.000140525700 1.0 0.0 M2
2
1
0.3 10.0 0.4 20.0
2
0.6 11.0 0.8 21.0
`
	path := writeSolution(t, "fort.54", content)
	dsets, err := newTestImporter(2).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantNames := []string{
		"M2 Velocity Amplitude", "M2 Velocity Phase",
		"M2 Velocity Amplitude Magnitude", "M2 Velocity Phase Magnitude",
	}
	if len(dsets) != len(wantNames) {
		t.Fatalf("got %d datasets, want %d", len(dsets), len(wantNames))
	}
	for i, d := range dsets {
		if d.Name != wantNames[i] {
			t.Errorf("dataset %d name = %q, want %q", i, d.Name, wantNames[i])
		}
	}
	amp := dsets[0]
	if amp.NumComponents != 2 {
		t.Errorf("amplitude components = %d", amp.NumComponents)
	}
	if got := amp.Values[0]; got[0] != 0.3 || got[1] != 0.4 || got[2] != 0.6 || got[3] != 0.8 {
		t.Errorf("amplitude values = %v", got)
	}
	mag := dsets[2]
	if mag.NumComponents != 1 {
		t.Errorf("magnitude components = %d", mag.NumComponents)
	}
	if got := mag.Values[0][0]; math.Abs(got-math.Hypot(0.3, 0.4)) > 1e-12 {
		t.Errorf("amplitude magnitude = %v", got)
	}
}

func TestSniffScalarByContent(t *testing.T) {
	// A scalar file under a non-canonical name is recognized from its header
	// and named after the file. Three timesteps, since a two-timestep scalar
	// is sniffed as an extreme pair instead.
	content := `run description
3 3 300.0 300 1
300.0 1
1 0.5
2 0.6
3 0.7
600.0 2
1 0.8
2 0.9
3 1.0
900.0 3
1 1.1
2 1.2
3 1.3
`
	path := writeSolution(t, "elevation.dat", content)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(dsets) != 1 || dsets[0].Extreme {
		t.Fatalf("got %d datasets, extreme=%v", len(dsets), dsets[0].Extreme)
	}
	if dsets[0].Name != "elevation.dat" {
		t.Errorf("name = %q", dsets[0].Name)
	}
	if len(dsets[0].Times) != 3 {
		t.Errorf("got %d timesteps", len(dsets[0].Times))
	}
}

func TestSniffMaxPairByContent(t *testing.T) {
	// One component and exactly two timesteps reads as an extreme pair.
	path := writeSolution(t, "peak.dat", maxFile)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(dsets) != 2 || !dsets[0].Extreme {
		t.Errorf("got %d datasets, extreme=%v", len(dsets), dsets[0].Extreme)
	}
}

func TestSniffHarmonicByContent(t *testing.T) {
	path := writeSolution(t, "tides.dat", harmonicScalar)
	dsets, err := newTestImporter(3).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(dsets) != 4 {
		t.Errorf("got %d datasets, want 4", len(dsets))
	}
}

func TestSniffUnrecognized(t *testing.T) {
	path := writeSolution(t, "notes.txt", "this is not a solution file\nat all\n")
	_, err := newTestImporter(0).ReadFile(path)
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("ReadFile error = %v, want ErrUnrecognizedFormat", err)
	}
}

func TestReadAllSkipsStationsAndBroken(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "fort.63")
	if err := os.WriteFile(good, []byte(denseScalar), 0o644); err != nil {
		t.Fatal(err)
	}
	station := filepath.Join(dir, "fort.61")
	if err := os.WriteFile(station, []byte(denseScalar), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "fort.73")
	if err := os.WriteFile(broken, []byte("garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "fort.74")

	dsets, err := newTestImporter(3).ReadAll([]string{good, station, broken, missing})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(dsets) != 1 {
		t.Errorf("got %d datasets, want 1", len(dsets))
	}
}

func TestReadAllNoData(t *testing.T) {
	dir := t.TempDir()
	station := filepath.Join(dir, "fort.61")
	if err := os.WriteFile(station, []byte(denseScalar), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestImporter(3).ReadAll([]string{station})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("ReadAll error = %v, want ErrNoData", err)
	}
}
