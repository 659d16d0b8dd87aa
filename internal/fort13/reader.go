// Package fort13 reads ADCIRC fort.13 nodal attribute files into per-node
// datasets. The format lists every attribute twice: a metadata pass with
// the default values (which fixes the component count), then a sparse pass
// listing only the nodes that differ from the default.
package fort13

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/coastalkit/adcirc/internal/lineio"
	"github.com/coastalkit/adcirc/internal/models"
)

var (
	ErrFileNotFound      = errors.New("fort.13 file not found or empty")
	ErrInvalidFile       = errors.New("invalid fort.13 file")
	ErrNodeCountMismatch = errors.New("fort.13 node count does not match geometry")
	ErrNoAttributes      = errors.New("fort.13 contains no nodal attributes")
)

// geoidAttr is the one attribute that collapses to a model-configuration
// scalar instead of a per-node dataset.
const geoidAttr = "sea_surface_height_above_geoid"

// displayNames maps fort.13 attribute cards to the dataset names each of
// their components is published under.
var displayNames = map[string][]string{
	"surface_submergence_state": {"StartDry"},
	"surface_directional_effective_roughness_length": {
		"Z0Land000", "Z0Land030", "Z0Land060", "Z0Land090",
		"Z0Land120", "Z0Land150", "Z0Land180", "Z0Land210",
		"Z0Land240", "Z0Land270", "Z0Land300", "Z0Land330",
	},
	"surface_canopy_coefficient":                               {"VCanopy"},
	"bottom_roughness_length":                                  {"Z0b_var"},
	"wave_refraction_in_swan":                                  {"SwanWaveRefrac"},
	"average_horizontal_eddy_viscosity_in_sea_water_wrt_depth": {"EVC"},
	"primitive_weighting_in_continuity_equation":               {"TAU0"},
	"quadratic_friction_coefficient_at_sea_floor":              {"Quadratic friction"},
	"bridge_pilings_friction_paramenters":                      {"BK", "BAlpha", "BDelX", "POAN"},
	"mannings_n_at_sea_floor":                                  {"ManningsN"},
	"chezy_friction_coefficient_at_sea_floor":                  {"ChezyFric"},
	"elemental_slope_limiter":                                  {"ElSloLim"},
	"advection_state":                                          {"AdvState"},
	"initial_river_elevation":                                  {"IniRivEle"},
}

// DisplayNames returns the dataset names for an attribute card, or nil if
// the attribute is not recognized.
func DisplayNames(att string) []string {
	return displayNames[att]
}

// Result is everything decoded from one fort.13 file.
type Result struct {
	Datasets    []models.Dataset
	ByAttribute map[string][]int // attribute card -> indices into Datasets
	// GeoidOffset is the mean resolved value of sea_surface_height_above_geoid
	// when the file declares it; it is configuration, not a dataset.
	GeoidOffset    float64
	HasGeoidOffset bool
}

// Reader decodes one fort.13 file. Not safe for concurrent use; create one
// per read.
type Reader struct {
	path      string
	geomUUID  string
	geomNodes int
	logger    *log.Logger

	numNodes int
	numAtts  int
	order    []string
	defaults map[string][]float64
}

// New returns a reader for path. geomNodes is the node count of the mesh
// the attributes belong to; the file must agree with it. A nil logger uses
// the default logger.
func New(path, geomUUID string, geomNodes int, logger *log.Logger) *Reader {
	if logger == nil {
		logger = log.Default()
	}
	return &Reader{path: path, geomUUID: geomUUID, geomNodes: geomNodes, logger: logger}
}

// Read parses the file. Structural violations (missing file, zero nodes,
// node count mismatch, zero attributes) abort with no partial result.
func (r *Reader) Read() (*Result, error) {
	fi, err := os.Stat(r.path)
	if err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, r.path)
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open fort.13: %w", err)
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	if err := r.readHeader(lr); err != nil {
		return nil, err
	}
	if err := r.readInfo(lr); err != nil {
		return nil, err
	}
	res, err := r.readValues(lr)
	if err != nil {
		return nil, err
	}
	r.logger.Printf("successfully read ADCIRC nodal attributes from %q", r.path)
	return res, nil
}

func (r *Reader) readHeader(lr *lineio.Reader) error {
	if _, ok := lr.Next(); !ok { // grid name line
		return fmt.Errorf("%w: missing header", ErrInvalidFile)
	}
	numNodes, err := headerInt(lr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	numAtts, err := headerInt(lr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if numNodes <= 0 {
		return ErrInvalidFile
	}
	if numNodes != r.geomNodes {
		return fmt.Errorf("%w: file has %d, geometry has %d", ErrNodeCountMismatch, numNodes, r.geomNodes)
	}
	if numAtts == 0 {
		return fmt.Errorf("%w: %s", ErrNoAttributes, r.path)
	}
	r.numNodes = numNodes
	r.numAtts = numAtts
	return nil
}

func headerInt(lr *lineio.Reader) (int, error) {
	line, ok := lr.Next()
	if !ok {
		return 0, errors.New("unexpected end of header")
	}
	toks := lineio.Fields(line)
	if len(toks) == 0 {
		return 0, errors.New("empty header line")
	}
	return lineio.Int(toks[0])
}

// readInfo is the first pass: attribute name, units (discarded), dataset
// count (implied by the defaults line, discarded), default values.
func (r *Reader) readInfo(lr *lineio.Reader) error {
	r.logger.Printf("reading nodal attribute properties...")
	r.defaults = make(map[string][]float64, r.numAtts)
	r.order = make([]string, 0, r.numAtts)
	for i := 0; i < r.numAtts; i++ {
		line, ok := lr.Next()
		if !ok {
			return fmt.Errorf("%w: truncated attribute metadata", ErrInvalidFile)
		}
		toks := lineio.Fields(line)
		if len(toks) == 0 {
			return fmt.Errorf("%w: blank attribute name line", ErrInvalidFile)
		}
		name := toks[0]
		lr.Next() // physical units, don't care
		lr.Next() // component count is implied by the defaults line
		defLine, ok := lr.Next()
		if !ok {
			return fmt.Errorf("%w: missing defaults for %s", ErrInvalidFile, name)
		}
		defs, err := lineio.Floats(lineio.FieldsCSV(defLine))
		if err != nil {
			return fmt.Errorf("decode defaults for %s: %w", name, err)
		}
		if len(defs) == 0 {
			return fmt.Errorf("%w: no default values for %s", ErrInvalidFile, name)
		}
		r.order = append(r.order, name)
		r.defaults[name] = defs
	}
	return nil
}

// readValues is the second pass: per attribute, the exception count and the
// sparse (nodeID, values...) records. Every other node keeps the default.
func (r *Reader) readValues(lr *lineio.Reader) (*Result, error) {
	res := &Result{ByAttribute: make(map[string][]int)}
	for i := 0; i < r.numAtts; i++ {
		nameLine, ok := lr.NextNonBlank()
		if !ok {
			return nil, fmt.Errorf("%w: truncated attribute values", ErrInvalidFile)
		}
		name := lineio.Fields(nameLine)[0]
		defs, known := r.defaults[name]
		if !known {
			return nil, fmt.Errorf("%w: attribute %q in value section was not declared", ErrInvalidFile, name)
		}
		numComps := len(defs)
		r.logger.Printf("reading values for nodal attribute: %s (%d component(s))", name, numComps)

		countLine, ok := lr.Next()
		if !ok {
			return nil, fmt.Errorf("%w: missing exception count for %s", ErrInvalidFile, name)
		}
		numExceptions, err := lineio.Int(lineio.Fields(countLine)[0])
		if err != nil {
			return nil, fmt.Errorf("decode exception count for %s: %w", name, err)
		}

		vals := make([][]float64, numComps)
		for k := range vals {
			vals[k] = make([]float64, r.numNodes)
			for j := range vals[k] {
				vals[k][j] = defs[k]
			}
		}
		for e := 0; e < numExceptions; e++ {
			recLine, ok := lr.Next()
			if !ok {
				return nil, fmt.Errorf("%w: truncated exception records for %s", ErrInvalidFile, name)
			}
			toks := lineio.FieldsCSV(recLine)
			if len(toks) < numComps+1 {
				return nil, fmt.Errorf("%w: short exception record for %s", ErrInvalidFile, name)
			}
			nodeID, err := lineio.Int(toks[0])
			if err != nil {
				return nil, fmt.Errorf("decode node id for %s: %w", name, err)
			}
			if nodeID < 1 || nodeID > r.numNodes {
				return nil, fmt.Errorf("%w: node id %d out of range for %s", ErrInvalidFile, nodeID, name)
			}
			for k := 0; k < numComps; k++ {
				v, err := lineio.Float(toks[k+1])
				if err != nil {
					return nil, fmt.Errorf("decode value for %s node %d: %w", name, nodeID, err)
				}
				vals[k][nodeID-1] = v // node ids are 1-based in the file
			}
		}

		if name == geoidAttr {
			// Constant, not a dataset. Old files sometimes specify exceptions
			// for it anyway; use the mean of the resolved values.
			res.GeoidOffset = mean(vals[0])
			res.HasGeoidOffset = true
			continue
		}

		names := DisplayNames(name)
		switch {
		case names == nil:
			r.logger.Printf("warning: unrecognized nodal attribute found: %s", name)
		case len(names) != numComps:
			// Known name but the file declares a different component count.
			// Trust the file's shape, not the table's.
			r.logger.Printf("warning: attribute %s declares %d component(s), expected %d", name, numComps, len(names))
			names = nil
		}
		if names == nil {
			names = make([]string, numComps)
			for j := range names {
				if numComps == 1 {
					names[j] = name
				} else {
					names[j] = fmt.Sprintf("%s (%d)", name, j+1)
				}
			}
		}
		for j := 0; j < numComps; j++ {
			res.ByAttribute[name] = append(res.ByAttribute[name], len(res.Datasets))
			res.Datasets = append(res.Datasets, models.Dataset{
				Name:          names[j],
				UUID:          uuid.NewString(),
				GeomUUID:      r.geomUUID,
				NumComponents: 1,
				NullValue:     models.NullValue,
				TimeUnits:     "Seconds",
				Times:         []float64{0.0},
				Values:        [][]float64{vals[j]},
			})
		}
	}
	return res, nil
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
