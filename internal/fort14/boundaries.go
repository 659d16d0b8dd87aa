package fort14

import (
	"fmt"

	"github.com/coastalkit/adcirc/internal/lineio"
	"github.com/coastalkit/adcirc/internal/models"
)

// pipeDisabledZ is the sentinel pipe height meaning "no pipe here".
const pipeDisabledZ = 100.0

// classify maps a fort.14 IBTYPE code to an arc classification.
func classify(ibType int) (typ models.ArcType, opt models.BCOption, tangSlip, galerkin bool) {
	switch {
	case ibType%10 == 0 && ibType < 30:
		typ = models.ArcMainland
		if ibType == 20 {
			opt = models.BCNatural
		} else {
			opt = models.BCEssential
			tangSlip = ibType == 0
		}
	case ibType%10 == 1 && ibType < 30:
		typ = models.ArcIsland
		if ibType == 21 {
			opt = models.BCNatural
		} else {
			opt = models.BCEssential
			tangSlip = ibType == 1
		}
	case ibType%10 == 2 && ibType < 30:
		typ = models.ArcRiver
		if ibType == 22 {
			opt = models.BCNatural
		} else {
			opt = models.BCEssential
			tangSlip = ibType == 2
		}
	case ibType%10 == 3:
		typ = models.ArcLeveeOutflow
		if ibType == 23 {
			opt = models.BCNatural
		} else {
			opt = models.BCEssential
			tangSlip = ibType == 3
		}
	case ibType%10 == 4 || ibType%10 == 5:
		typ = models.ArcLevee
	case ibType == 30 || ibType == 32:
		// IBTYPE=32 (radiation with flux) is folded into plain radiation.
		typ = models.ArcRadiation
	case ibType == 40 || ibType == 41:
		typ = models.ArcZeroNormal
		galerkin = ibType == 41
	case ibType == 52:
		typ = models.ArcFlowAndRadiation
	default:
		typ = models.ArcGeneric
	}
	return typ, opt, tangSlip, galerkin
}

// readBoundaries parses the ocean, land, and generic arc sections that
// follow the element table. Real-world files omit trailing sections or cut
// them short; running out of parseable data here ends the read with
// whatever arcs were complete, it is not an error. An arc referencing an
// undefined node id is still a hard error.
func (r *Reader) readBoundaries(cur *lineio.Cursor, mesh *models.Mesh) (*models.Boundary, error) {
	r.logger.Printf("parsing boundary conditions data...")
	b := &models.Boundary{
		Levees:    make(map[int][]models.LeveeSegment),
		Locations: make(map[models.ArcType][][]models.Point),
	}

	if ok, err := r.readOceanSection(cur, mesh, b); !ok || err != nil {
		return b, err
	}
	landOK, err := r.readLandSection(cur, mesh, b)
	if err != nil {
		return b, err
	}
	if !landOK {
		return b, nil
	}
	if err := r.readGenericSection(cur, mesh, b); err != nil {
		return b, err
	}
	return b, nil
}

func (r *Reader) readOceanSection(cur *lineio.Cursor, mesh *models.Mesh, b *models.Boundary) (bool, error) {
	if cur.Remaining() == 0 {
		return false, nil
	}
	line, _ := cur.Next()
	cur.Skip(1) // total ocean node count, don't care
	numArcs, ok := sectionCount(line)
	if !ok {
		return false, nil
	}
	r.logger.Printf("processing ocean boundaries...")
	for i := 0; i < numArcs; i++ {
		countLine, ok := cur.Next()
		if !ok {
			return false, nil
		}
		numNodes, ok := sectionCount(countLine)
		if !ok {
			return false, nil
		}
		arc := models.BoundaryArc{Type: models.ArcOcean, Partner: models.NoPartner}
		var locs []models.Point
		for j := 0; j < numNodes; j++ {
			idx, err := r.arcNode(cur)
			if err != nil {
				return false, err
			}
			if idx < 0 { // truncated arc, drop it and stop
				return false, nil
			}
			arc.Nodes = append(arc.Nodes, idx)
			locs = append(locs, mesh.Points[idx])
		}
		b.OceanNodes = append(b.OceanNodes, arc.Nodes...)
		b.Arcs = append(b.Arcs, arc)
		b.Locations[models.ArcOcean] = append(b.Locations[models.ArcOcean], locs)
	}
	return true, nil
}

func (r *Reader) readLandSection(cur *lineio.Cursor, mesh *models.Mesh, b *models.Boundary) (bool, error) {
	r.logger.Printf("processing land boundaries...")
	if cur.Remaining() == 0 {
		return false, nil
	}
	line, _ := cur.Next()
	cur.Skip(1) // total land node count, don't care
	numArcs, ok := sectionCount(line)
	if !ok {
		return false, nil
	}
	for i := 0; i < numArcs; i++ {
		header, ok := cur.Next()
		if !ok {
			return false, nil
		}
		toks := lineio.Fields(header)
		if len(toks) < 2 {
			return false, nil // unexpected end of land arcs
		}
		numNodes, err1 := lineio.Int(toks[0])
		ibType, err2 := lineio.Int(toks[1])
		if err1 != nil || err2 != nil {
			return false, nil // unexpected end of land arcs
		}

		typ, opt, tangSlip, galerkin := classify(ibType)
		switch {
		case typ == models.ArcLeveeOutflow:
			if err := r.readLeveeOutflow(cur, mesh, b, numNodes, opt, tangSlip); err != nil {
				return false, err
			}
		case typ == models.ArcLevee:
			if err := r.readLeveePair(cur, mesh, b, numNodes); err != nil {
				return false, err
			}
		default:
			arc := models.BoundaryArc{
				Type:           typ,
				Option:         opt,
				TangentialSlip: tangSlip,
				Galerkin:       galerkin,
				Partner:        models.NoPartner,
			}
			var locs []models.Point
			for j := 0; j < numNodes; j++ {
				idx, err := r.arcNode(cur)
				if err != nil {
					return false, err
				}
				if idx < 0 {
					return false, nil
				}
				arc.Nodes = append(arc.Nodes, idx)
				locs = append(locs, mesh.Points[idx])
				if typ == models.ArcRiver {
					b.RiverNodes = append(b.RiverNodes, idx)
				}
			}
			b.Arcs = append(b.Arcs, arc)
			b.Locations[typ] = append(b.Locations[typ], locs)
		}
	}
	return true, nil
}

func (r *Reader) readGenericSection(cur *lineio.Cursor, mesh *models.Mesh, b *models.Boundary) error {
	if cur.Remaining() == 0 {
		return nil
	}
	line, _ := cur.Next()
	cur.Skip(1) // total generic node count, don't care
	numArcs, ok := sectionCount(line)
	if !ok {
		return nil
	}
	for i := 0; i < numArcs; i++ {
		countLine, ok := cur.Next()
		if !ok {
			return nil
		}
		numNodes, ok := sectionCount(countLine)
		if !ok {
			return nil
		}
		arc := models.BoundaryArc{Type: models.ArcGeneric, Partner: models.NoPartner}
		var locs []models.Point
		for j := 0; j < numNodes; j++ {
			idx, err := r.arcNode(cur)
			if err != nil {
				return err
			}
			if idx < 0 {
				return nil
			}
			arc.Nodes = append(arc.Nodes, idx)
			locs = append(locs, mesh.Points[idx])
		}
		b.Arcs = append(b.Arcs, arc)
		b.Locations[models.ArcGeneric] = append(b.Locations[models.ArcGeneric], locs)
	}
	return nil
}

// readLeveeOutflow reads a single-sided levee arc: node id, crest height,
// supercritical flow coefficient per line.
func (r *Reader) readLeveeOutflow(cur *lineio.Cursor, mesh *models.Mesh, b *models.Boundary,
	numNodes int, opt models.BCOption, tangSlip bool) error {
	arc := models.BoundaryArc{
		Type:           models.ArcLeveeOutflow,
		Option:         opt,
		TangentialSlip: tangSlip,
		Partner:        models.NoPartner,
	}
	var (
		locs []models.Point
		segs []models.LeveeSegment
	)
	for i := 0; i < numNodes; i++ {
		line, ok := cur.Next()
		if !ok {
			return nil // truncated arc, drop it
		}
		toks := lineio.Fields(lineio.StripComment(line))
		if len(toks) < 3 {
			return nil
		}
		id, err := lineio.Int(toks[0])
		if err != nil {
			return nil
		}
		idx, found := r.ptIndex[id]
		if !found {
			return fmt.Errorf("%w: levee outflow arc references node %d", ErrUndefinedPoint, id)
		}
		vals, err := lineio.Floats(toks[1:3])
		if err != nil {
			return fmt.Errorf("decode levee outflow record: %w", err)
		}
		arc.Nodes = append(arc.Nodes, idx)
		locs = append(locs, mesh.Points[idx])
		segs = append(segs, models.LeveeSegment{
			Node1:       idx,
			Node2:       models.NoPartner,
			CrestHeight: vals[0],
			SuperCoef:   vals[1],
		})
	}
	arcIdx := len(b.Arcs)
	b.Arcs = append(b.Arcs, arc)
	b.Levees[arcIdx] = segs
	b.Locations[models.ArcLeveeOutflow] = append(b.Locations[models.ArcLeveeOutflow], locs)
	return nil
}

// readLeveePair reads a two-sided levee: each line names a node on either
// side plus crest/flow parameters and an optional culvert pipe. The pipe is
// present when the line has pipe columns and its height is below the 100.0
// disabled sentinel. The two arcs always have the same node count and link
// to each other.
func (r *Reader) readLeveePair(cur *lineio.Cursor, mesh *models.Mesh, b *models.Boundary, numNodes int) error {
	var (
		side1, side2 []int
		locs1, locs2 []models.Point
		segs         []models.LeveeSegment
	)
	for i := 0; i < numNodes; i++ {
		line, ok := cur.Next()
		if !ok {
			return nil // truncated pair, drop it
		}
		toks := lineio.Fields(lineio.StripComment(line))
		if len(toks) < 5 {
			return nil
		}
		id1, err1 := lineio.Int(toks[0])
		id2, err2 := lineio.Int(toks[1])
		if err1 != nil || err2 != nil {
			return nil
		}
		idx1, found1 := r.ptIndex[id1]
		idx2, found2 := r.ptIndex[id2]
		if !found1 || !found2 {
			return fmt.Errorf("%w: levee pair references nodes %d/%d", ErrUndefinedPoint, id1, id2)
		}
		vals, err := lineio.Floats(toks[2:5])
		if err != nil {
			return fmt.Errorf("decode levee record: %w", err)
		}
		seg := models.LeveeSegment{
			Node1:       idx1,
			Node2:       idx2,
			CrestHeight: vals[0],
			SubCoef:     vals[1],
			SuperCoef:   vals[2],
		}
		if len(toks) > 7 { // pipe columns follow: height, coefficient, diameter
			pipeVals, err := lineio.Floats(toks[5:8])
			if err != nil {
				return fmt.Errorf("decode pipe record: %w", err)
			}
			seg.PipeZ = pipeVals[0]
			seg.PipeCoef = pipeVals[1]
			seg.PipeDiameter = pipeVals[2]
			if seg.PipeZ < pipeDisabledZ {
				seg.HasPipe = true
				b.PipeSpans = append(b.PipeSpans, [2]models.Point{mesh.Points[idx1], mesh.Points[idx2]})
			}
		}
		side1 = append(side1, idx1)
		side2 = append(side2, idx2)
		locs1 = append(locs1, mesh.Points[idx1])
		locs2 = append(locs2, mesh.Points[idx2])
		segs = append(segs, seg)
	}
	arc1Idx := len(b.Arcs)
	arc2Idx := arc1Idx + 1
	b.Arcs = append(b.Arcs,
		models.BoundaryArc{Type: models.ArcLevee, Partner: arc2Idx, Nodes: side1},
		models.BoundaryArc{Type: models.ArcLevee, Partner: arc1Idx, Nodes: side2},
	)
	b.Levees[arc1Idx] = segs
	b.Locations[models.ArcLevee] = append(b.Locations[models.ArcLevee], locs1, locs2)
	return nil
}

// arcNode reads one arc node line and resolves the file node id. Returns
// -1 with a nil error when the section is truncated.
func (r *Reader) arcNode(cur *lineio.Cursor) (int, error) {
	line, ok := cur.Next()
	if !ok {
		return -1, nil
	}
	toks := lineio.Fields(line)
	if len(toks) == 0 {
		return -1, nil
	}
	id, err := lineio.Int(toks[0])
	if err != nil {
		return -1, nil
	}
	idx, found := r.ptIndex[id]
	if !found {
		return 0, fmt.Errorf("%w: boundary arc references node %d", ErrUndefinedPoint, id)
	}
	return idx, nil
}

// sectionCount decodes a section or arc count line. ok is false when the
// line does not start with an integer, which in this grammar means the
// optional sections simply end here.
func sectionCount(line string) (int, bool) {
	toks := lineio.Fields(line)
	if len(toks) == 0 {
		return 0, false
	}
	n, err := lineio.Int(toks[0])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
