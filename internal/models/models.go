package models

import "math"

// NullValue is the sentinel ADCIRC writes for "no data" in solution output.
const NullValue = -99999.0

// Point is a mesh node location. Z is elevation (negated fort.14 depth).
type Point struct {
	X float64
	Y float64
	Z float64
}

// Mesh is an indexed triangular mesh. Cells hold 0-based point indices.
type Mesh struct {
	Name   string
	UUID   string
	Points []Point
	Cells  [][3]int
}

// Extents returns the bounding box of the mesh points.
func (m *Mesh) Extents() (min, max Point) {
	if len(m.Points) == 0 {
		return Point{}, Point{}
	}
	min, max = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}

// CoordSys tags the horizontal coordinate system of a mesh.
type CoordSys int

const (
	CoordGeographic CoordSys = iota // lat/lon, NAD83
	CoordLocalMeters
	CoordLocalFeet
)

func (c CoordSys) String() string {
	switch c {
	case CoordGeographic:
		return "geographic"
	case CoordLocalMeters:
		return "local (meters)"
	case CoordLocalFeet:
		return "local (feet)"
	}
	return "unknown"
}

// ArcType classifies a boundary nodestring.
type ArcType int

const (
	ArcOcean ArcType = iota
	ArcMainland
	ArcIsland
	ArcRiver
	ArcLeveeOutflow
	ArcLevee
	ArcRadiation
	ArcZeroNormal
	ArcFlowAndRadiation
	ArcGeneric
)

func (a ArcType) String() string {
	switch a {
	case ArcOcean:
		return "ocean"
	case ArcMainland:
		return "mainland"
	case ArcIsland:
		return "island"
	case ArcRiver:
		return "river"
	case ArcLeveeOutflow:
		return "levee outflow"
	case ArcLevee:
		return "levee"
	case ArcRadiation:
		return "radiation"
	case ArcZeroNormal:
		return "zero normal"
	case ArcFlowAndRadiation:
		return "flow and radiation"
	case ArcGeneric:
		return "generic"
	}
	return "unknown"
}

// BCOption distinguishes essential from natural boundary treatment.
type BCOption int

const (
	BCEssential BCOption = iota
	BCNatural
)

// NoPartner marks an arc without a levee-pair partner.
const NoPartner = -1

// BoundaryArc is one boundary nodestring. Nodes are 0-based point indices
// in read order. Partner links the two arcs of a levee pair (symmetric) and
// is NoPartner otherwise.
type BoundaryArc struct {
	Type           ArcType
	Option         BCOption
	TangentialSlip bool
	Galerkin       bool
	Partner        int
	Nodes          []int
}

// LeveeSegment is one per-node record of a levee or levee-outflow arc.
// Node2 is NoPartner for outflow arcs. Pipe fields are meaningful only
// when HasPipe is set.
type LeveeSegment struct {
	Node1        int
	Node2        int
	CrestHeight  float64
	SubCoef      float64
	SuperCoef    float64
	HasPipe      bool
	PipeZ        float64
	PipeCoef     float64
	PipeDiameter float64
}

// Boundary collects everything decoded from the fort.14 boundary sections.
// Locations holds each arc's node coordinates bucketed by type for display.
// PipeSpans are lines between the two nodes of each enabled culvert pipe.
type Boundary struct {
	Arcs       []BoundaryArc
	Levees     map[int][]LeveeSegment // arc index -> per-node levee records
	OceanNodes []int
	RiverNodes []int
	Locations  map[ArcType][][]Point
	PipeSpans  [][2]Point
}

// Dataset is a named per-node time series. Values holds one flat slice per
// timestep with NumComponents values per node, interleaved
// (u0 v0 u1 v1 ... for vectors).
type Dataset struct {
	Name          string
	UUID          string
	GeomUUID      string
	NumComponents int
	NullValue     float64
	TimeUnits     string
	Extreme       bool // min/max dataset, grouped separately by consumers
	Times         []float64
	Values        [][]float64
}

// Value returns component comp of node at timestep ts.
func (d *Dataset) Value(ts, node, comp int) float64 {
	return d.Values[ts][node*d.NumComponents+comp]
}

// NullsToNaN replaces the null sentinel with NaN in place so numeric
// operations do not fold "no data" into legitimate values.
func NullsToNaN(vals []float64, null float64) {
	for i, v := range vals {
		if v == null {
			vals[i] = math.NaN()
		}
	}
}

// NaNsToNull is the inverse of NullsToNaN. Applying the pair is a no-op on
// every element that was not already NaN.
func NaNsToNull(vals []float64, null float64) {
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = null
		}
	}
}
