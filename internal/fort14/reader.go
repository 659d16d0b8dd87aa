// Package fort14 reads ADCIRC fort.14 mesh files: node locations, triangular
// connectivity, and optionally the boundary-condition sections that follow
// the element table.
package fort14

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/coastalkit/adcirc/internal/lineio"
	"github.com/coastalkit/adcirc/internal/models"
)

var (
	ErrFileNotFound   = errors.New("fort.14 file not found or empty")
	ErrInvalidFile    = errors.New("invalid fort.14 file")
	ErrUndefinedPoint = errors.New("fort.14 references an undefined node id")
)

// Hint carries projection info supplied by an external source (the fort.15
// reader in a combined import). Without one the reader infers the system
// from the mesh extents.
type Hint struct {
	Geographic    bool
	VerticalUnits string // "METERS" or "FEET"
}

// Result is a fully decoded fort.14.
type Result struct {
	Mesh     *models.Mesh
	CoordSys models.CoordSys
	Boundary *models.Boundary // nil unless ReadBoundaries was set
}

// Reader decodes one fort.14 file. Not safe for concurrent use; create one
// per read.
type Reader struct {
	// ReadBoundaries enables the boundary coverage sections. The minimal
	// standalone read stops after the element table.
	ReadBoundaries bool
	// Hint, when non-nil, overrides extent-based coordinate inference.
	Hint *Hint

	path   string
	logger *log.Logger

	ptIndex  map[int]int // file node id -> 0-based point index
	numNodes int
	numCells int
}

// New returns a reader for path. A nil logger uses the default logger.
func New(path string, logger *log.Logger) *Reader {
	if logger == nil {
		logger = log.Default()
	}
	return &Reader{path: path, logger: logger}
}

// Read parses the file. The mesh build is all-or-nothing: a missing file,
// short node/element table, or an element referencing an unknown node id
// aborts with no partial mesh.
func (r *Reader) Read() (*Result, error) {
	fi, err := os.Stat(r.path)
	if err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, r.path)
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open fort.14: %w", err)
	}
	defer f.Close()

	r.logger.Printf("loading fort.14 from ASCII file...")
	cur, err := lineio.NewCursor(f)
	if err != nil {
		return nil, fmt.Errorf("read fort.14: %w", err)
	}

	nameLine, ok := cur.Next()
	if !ok {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	mesh := &models.Mesh{Name: strings.TrimSpace(nameLine), UUID: uuid.NewString()}

	if err := r.readMesh(cur, mesh); err != nil {
		return nil, err
	}

	res := &Result{Mesh: mesh, CoordSys: r.coordSys(mesh)}
	if r.ReadBoundaries {
		b, err := r.readBoundaries(cur, mesh)
		if err != nil {
			return nil, err
		}
		res.Boundary = b
	}
	r.logger.Printf("successfully read %q", r.path)
	return res, nil
}

// readMesh decodes the header, node table, and element table. The header
// is element-count-first, unlike the fort.13 header.
func (r *Reader) readMesh(cur *lineio.Cursor, mesh *models.Mesh) error {
	header, ok := cur.Next()
	if !ok {
		return fmt.Errorf("%w: missing mesh header", ErrInvalidFile)
	}
	toks := lineio.Fields(header)
	if len(toks) < 2 {
		return fmt.Errorf("%w: short mesh header", ErrInvalidFile)
	}
	numCells, err := lineio.Int(toks[0])
	if err != nil {
		return fmt.Errorf("decode element count: %w", err)
	}
	numNodes, err := lineio.Int(toks[1])
	if err != nil {
		return fmt.Errorf("decode node count: %w", err)
	}
	if numNodes <= 0 {
		return fmt.Errorf("%w: node count %d", ErrInvalidFile, numNodes)
	}
	r.numCells = numCells
	r.numNodes = numNodes

	// Node table: id x y z, one per line. File ids may have gaps or arrive
	// out of order; array positions are assigned in read order. The fort.14
	// z column is a depth, negated here to the elevation convention.
	r.logger.Printf("parsing mesh node locations...")
	r.ptIndex = make(map[int]int, numNodes)
	mesh.Points = make([]models.Point, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		line, ok := cur.Next()
		if !ok {
			return fmt.Errorf("%w: node table ends after %d of %d nodes", ErrInvalidFile, i, numNodes)
		}
		toks := lineio.Fields(line)
		if len(toks) < 4 {
			return fmt.Errorf("%w: short node record %q", ErrInvalidFile, line)
		}
		id, err := lineio.Int(toks[0])
		if err != nil {
			return fmt.Errorf("decode node id: %w", err)
		}
		coords, err := lineio.Floats(toks[1:4])
		if err != nil {
			return fmt.Errorf("decode node %d coordinates: %w", id, err)
		}
		r.ptIndex[id] = len(mesh.Points)
		mesh.Points = append(mesh.Points, models.Point{X: coords[0], Y: coords[1], Z: -coords[2]})
	}

	// Element table: id nodeCount p1 p2 p3. Only triangles are supported.
	r.logger.Printf("parsing mesh element definitions...")
	mesh.Cells = make([][3]int, 0, numCells)
	for i := 0; i < numCells; i++ {
		line, ok := cur.Next()
		if !ok {
			return fmt.Errorf("%w: element table ends after %d of %d elements", ErrInvalidFile, i, numCells)
		}
		toks := lineio.Fields(line)
		if len(toks) < 5 {
			return fmt.Errorf("%w: short element record %q", ErrInvalidFile, line)
		}
		var cell [3]int
		for j := 0; j < 3; j++ {
			id, err := lineio.Int(toks[j+2])
			if err != nil {
				return fmt.Errorf("decode element node id: %w", err)
			}
			idx, found := r.ptIndex[id]
			if !found {
				return fmt.Errorf("%w: element %d references node %d", ErrUndefinedPoint, i+1, id)
			}
			cell[j] = idx
		}
		mesh.Cells = append(mesh.Cells, cell)
	}
	return nil
}

func (r *Reader) coordSys(mesh *models.Mesh) models.CoordSys {
	if r.Hint != nil {
		if r.Hint.Geographic {
			return models.CoordGeographic
		}
		if strings.EqualFold(r.Hint.VerticalUnits, "FEET") {
			return models.CoordLocalFeet
		}
		return models.CoordLocalMeters
	}
	// No projection info supplied: treat extents that fit in lat/lon bounds
	// as geographic, otherwise assume local meters.
	min, max := mesh.Extents()
	if min.X >= -180.0 && min.Y >= -90.0 && max.X <= 180.0 && max.Y <= 90.0 {
		return models.CoordGeographic
	}
	return models.CoordLocalMeters
}
