package solution

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/coastalkit/adcirc/internal/lineio"
	"github.com/coastalkit/adcirc/internal/models"
)

// readHeader reads the two-line ASCII header: a description line, then
// "timestepCount nodeCount ...".
func (im *Importer) readHeader(lr *lineio.Reader) error {
	if _, ok := lr.Next(); !ok {
		return fmt.Errorf("%w: empty file", ErrUnrecognizedFormat)
	}
	line, ok := lr.Next()
	if !ok {
		return fmt.Errorf("%w: missing header line", ErrUnrecognizedFormat)
	}
	toks := lineio.Fields(line)
	if len(toks) < 2 {
		return fmt.Errorf("%w: short header line", ErrUnrecognizedFormat)
	}
	numTS, err := lineio.Int(toks[0])
	if err != nil {
		return fmt.Errorf("decode timestep count: %w", err)
	}
	numNodes, err := lineio.Int(toks[1])
	if err != nil {
		return fmt.Errorf("decode node count: %w", err)
	}
	if im.GeomNodes > 0 && numNodes != im.GeomNodes {
		return fmt.Errorf("%w: file has %d, geometry has %d", ErrIncorrectValueCount, numNodes, im.GeomNodes)
	}
	im.numTS = numTS
	im.numNodes = numNodes
	return nil
}

func (im *Importer) newDataset(name string, numComponents int, extreme bool) models.Dataset {
	return models.Dataset{
		Name:          name,
		UUID:          uuid.NewString(),
		GeomUUID:      im.GeomUUID,
		NumComponents: numComponents,
		NullValue:     models.NullValue,
		TimeUnits:     "Seconds",
		Extreme:       extreme,
	}
}

// readASCIIScalars decodes a scalar time-series file (fort.63 layout). A
// timestep line with extra tokens is a sparse record: only sparseCount
// nodes are listed as (nodeID, value) pairs and the rest take the default.
func (im *Importer) readASCIIScalars(path, name string) ([]models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open solution file: %w", err)
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	if err := im.readHeader(lr); err != nil {
		return nil, err
	}

	dset := im.newDataset(name, 1, false)
	for i := 0; i < im.numTS; i++ {
		im.logger.Printf("reading timestep %d of %d", i+1, im.numTS)
		tsLine, ok := lr.NextNonBlank()
		if !ok {
			break // unexpected EOF between timesteps
		}
		toks := lineio.Fields(tsLine)
		tsTime, err := lineio.Float(toks[0])
		if err != nil {
			return nil, fmt.Errorf("decode timestep time: %w", err)
		}

		numVals := im.numNodes
		defaultVal := 0.0
		sparse := false
		if len(toks) > 3 { // sparse record: count and default follow the time
			numVals, err = lineio.Int(toks[2])
			if err != nil {
				return nil, fmt.Errorf("decode sparse count: %w", err)
			}
			defaultVal, err = lineio.Float(toks[3])
			if err != nil {
				return nil, fmt.Errorf("decode sparse default: %w", err)
			}
			sparse = true
		}

		vals := make([]float64, im.numNodes)
		for j := range vals {
			vals[j] = defaultVal
		}
		complete := true
		for j := 0; j < numVals; j++ {
			toks, ok := nextValueLine(lr)
			if !ok {
				complete = false // not enough values for this timestep
				break
			}
			v, err := lineio.Float(toks[1])
			if err != nil {
				return nil, fmt.Errorf("decode node value: %w", err)
			}
			if sparse {
				nodeID, err := lineio.Int(toks[0])
				if err != nil {
					return nil, fmt.Errorf("decode sparse node id: %w", err)
				}
				if nodeID < 1 || nodeID > im.numNodes {
					return nil, fmt.Errorf("%w: sparse node id %d out of range 1..%d", ErrIncorrectValueCount, nodeID, im.numNodes)
				}
				vals[nodeID-1] = v
			} else {
				vals[j] = v
			}
		}
		if !complete {
			if im.Strict {
				return nil, fmt.Errorf("%w: timestep %d truncated", ErrIncorrectValueCount, i+1)
			}
			im.logger.Printf("warning: dropping truncated timestep %d of %d", i+1, im.numTS)
			break
		}
		dset.Times = append(dset.Times, tsTime)
		dset.Values = append(dset.Values, vals)
	}

	if len(dset.Times) == 0 {
		return nil, nil
	}
	return []models.Dataset{dset}, nil
}

// readASCIIVectors decodes a two-component time-series file (fort.64
// layout). Values are stored interleaved per node.
func (im *Importer) readASCIIVectors(path, name string) ([]models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open solution file: %w", err)
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	if err := im.readHeader(lr); err != nil {
		return nil, err
	}

	dset := im.newDataset(name, 2, false)
	for i := 0; i < im.numTS; i++ {
		im.logger.Printf("reading timestep %d of %d", i+1, im.numTS)
		tsLine, ok := lr.NextNonBlank()
		if !ok {
			break
		}
		toks := lineio.Fields(tsLine)
		tsTime, err := lineio.Float(toks[0])
		if err != nil {
			return nil, fmt.Errorf("decode timestep time: %w", err)
		}

		numVals := im.numNodes
		default1, default2 := 0.0, 0.0
		sparse := false
		if len(toks) > 4 { // sparse record: count and both defaults follow
			numVals, err = lineio.Int(toks[2])
			if err != nil {
				return nil, fmt.Errorf("decode sparse count: %w", err)
			}
			default1, err = lineio.Float(toks[3])
			if err != nil {
				return nil, fmt.Errorf("decode sparse default: %w", err)
			}
			default2, err = lineio.Float(toks[4])
			if err != nil {
				return nil, fmt.Errorf("decode sparse default: %w", err)
			}
			sparse = true
		}

		vals := make([]float64, 2*im.numNodes)
		for j := 0; j < im.numNodes; j++ {
			vals[2*j] = default1
			vals[2*j+1] = default2
		}
		complete := true
		for j := 0; j < numVals; j++ {
			toks, ok := nextValueLine(lr)
			if !ok || len(toks) < 3 {
				complete = false
				break
			}
			u, err1 := lineio.Float(toks[1])
			v, err2 := lineio.Float(toks[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("decode vector components in %q", toks)
			}
			idx := j
			if sparse {
				nodeID, err := lineio.Int(toks[0])
				if err != nil {
					return nil, fmt.Errorf("decode sparse node id: %w", err)
				}
				if nodeID < 1 || nodeID > im.numNodes {
					return nil, fmt.Errorf("%w: sparse node id %d out of range 1..%d", ErrIncorrectValueCount, nodeID, im.numNodes)
				}
				idx = nodeID - 1
			}
			vals[2*idx] = u
			vals[2*idx+1] = v
		}
		if !complete {
			if im.Strict {
				return nil, fmt.Errorf("%w: timestep %d truncated", ErrIncorrectValueCount, i+1)
			}
			im.logger.Printf("warning: dropping truncated timestep %d of %d", i+1, im.numTS)
			break
		}
		dset.Times = append(dset.Times, tsTime)
		dset.Values = append(dset.Values, vals)
	}

	if len(dset.Times) == 0 {
		return nil, nil
	}
	return []models.Dataset{dset}, nil
}

// readASCIIMax decodes an extreme-value file (maxele.63 layout): two
// "timesteps", the extreme values and the times they occurred, emitted as
// two steady-state datasets ("{name}" and "{name} Time").
func (im *Importer) readASCIIMax(path, name string) ([]models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open solution file: %w", err)
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	if err := im.readHeader(lr); err != nil {
		return nil, err
	}

	var dsets []models.Dataset
	for i := 0; i < 2; i++ {
		tsLine, ok := lr.NextNonBlank()
		if !ok {
			break
		}
		toks := lineio.Fields(tsLine)
		tsTime, err := lineio.Float(toks[0])
		if err != nil {
			return nil, fmt.Errorf("decode timestep time: %w", err)
		}

		vals := make([]float64, im.numNodes)
		complete := true
		for j := 0; j < im.numNodes; j++ {
			toks, ok := nextValueLine(lr)
			if !ok {
				complete = false
				break
			}
			v, err := lineio.Float(toks[1])
			if err != nil {
				return nil, fmt.Errorf("decode node value: %w", err)
			}
			vals[j] = v
		}
		if !complete {
			break
		}
		dsetName := name
		if i > 0 {
			dsetName = name + " Time" // second block is the time-of-extreme
		}
		dset := im.newDataset(dsetName, 1, true)
		dset.Times = []float64{tsTime}
		dset.Values = [][]float64{vals}
		dsets = append(dsets, dset)
	}
	return dsets, nil
}

// readASCIIHarmonic decodes a harmonic analysis file (fort.53 scalar,
// fort.54 vector): constituent table, node count, then per node one
// amplitude/phase line per constituent. Vector files additionally yield
// derived magnitude datasets.
func (im *Importer) readASCIIHarmonic(path string, scalar bool) ([]models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open solution file: %w", err)
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	line, ok := lr.Next()
	if !ok {
		return nil, fmt.Errorf("%w: empty file", ErrUnrecognizedFormat)
	}
	toks := lineio.Fields(line)
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: missing constituent count", ErrUnrecognizedFormat)
	}
	numCons, err := lineio.Int(toks[0])
	if err != nil {
		return nil, fmt.Errorf("decode constituent count: %w", err)
	}
	conNames := make([]string, numCons)
	for i := 0; i < numCons; i++ {
		// HAFREQ, HAFF, HAFACE, NAMEFR - only the name matters here.
		line, ok := lr.Next()
		if !ok {
			return nil, fmt.Errorf("%w: truncated constituent table", ErrUnrecognizedFormat)
		}
		toks := lineio.Fields(line)
		if len(toks) < 4 {
			return nil, fmt.Errorf("%w: short constituent record", ErrUnrecognizedFormat)
		}
		conNames[i] = toks[3]
	}
	line, ok = lr.Next()
	if !ok {
		return nil, fmt.Errorf("%w: missing node count", ErrUnrecognizedFormat)
	}
	toks = lineio.Fields(line)
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: missing node count", ErrUnrecognizedFormat)
	}
	numPts, err := lineio.Int(toks[0])
	if err != nil {
		return nil, fmt.Errorf("decode node count: %w", err)
	}
	if im.GeomNodes > 0 && numPts != im.GeomNodes {
		return nil, fmt.Errorf("%w: file has %d, geometry has %d", ErrIncorrectValueCount, numPts, im.GeomNodes)
	}

	comps := 1
	if !scalar {
		comps = 2
	}
	amp := make([][]float64, numCons)
	phase := make([][]float64, numCons)
	ampMag := make([][]float64, numCons)
	phaseMag := make([][]float64, numCons)
	for i := range amp {
		amp[i] = make([]float64, comps*numPts)
		phase[i] = make([]float64, comps*numPts)
		if !scalar {
			ampMag[i] = make([]float64, numPts)
			phaseMag[i] = make([]float64, numPts)
		}
	}

	for i := 0; i < numPts; i++ {
		if _, ok := lr.Next(); !ok { // node id line
			return nil, fmt.Errorf("%w: truncated harmonic records", ErrUnrecognizedFormat)
		}
		for j := 0; j < numCons; j++ {
			line, ok := lr.Next()
			if !ok {
				return nil, fmt.Errorf("%w: truncated harmonic records", ErrUnrecognizedFormat)
			}
			vals, err := lineio.Floats(lineio.Fields(line))
			if err != nil {
				return nil, fmt.Errorf("decode harmonic record: %w", err)
			}
			if scalar {
				if len(vals) < 2 {
					return nil, fmt.Errorf("%w: short harmonic record", ErrUnrecognizedFormat)
				}
				amp[j][i] = vals[0]
				phase[j][i] = vals[1]
			} else {
				if len(vals) < 4 {
					return nil, fmt.Errorf("%w: short harmonic record", ErrUnrecognizedFormat)
				}
				amp[j][2*i] = vals[0]
				amp[j][2*i+1] = vals[2]
				phase[j][2*i] = vals[1]
				phase[j][2*i+1] = vals[3]
				ampMag[j][i] = math.Hypot(vals[0], vals[2])
				phaseMag[j][i] = math.Hypot(vals[1], vals[3])
			}
		}
	}

	kind := " Elevation "
	if !scalar {
		kind = " Velocity "
	}
	var dsets []models.Dataset
	for i := 0; i < numCons; i++ {
		a := im.newDataset(conNames[i]+kind+"Amplitude", comps, false)
		a.Times = []float64{0.0}
		a.Values = [][]float64{amp[i]}
		p := im.newDataset(conNames[i]+kind+"Phase", comps, false)
		p.Times = []float64{0.0}
		p.Values = [][]float64{phase[i]}
		dsets = append(dsets, a, p)
		if !scalar {
			am := im.newDataset(conNames[i]+kind+"Amplitude Magnitude", 1, false)
			am.Times = []float64{0.0}
			am.Values = [][]float64{ampMag[i]}
			pm := im.newDataset(conNames[i]+kind+"Phase Magnitude", 1, false)
			pm.Times = []float64{0.0}
			pm.Values = [][]float64{phaseMag[i]}
			dsets = append(dsets, am, pm)
		}
	}
	return dsets, nil
}

// nextValueLine returns the fields of the next node value line, or ok=false
// on EOF/blank line (a truncated timestep).
func nextValueLine(lr *lineio.Reader) ([]string, bool) {
	line, ok := lr.Next()
	if !ok {
		return nil, false
	}
	toks := lineio.Fields(line)
	if len(toks) < 2 {
		return nil, false
	}
	return toks, true
}

// sniff determines a non-canonically named file's format from its content:
// an ordered chain of probes, NetCDF first, then the ASCII header shapes.
func (im *Importer) sniff(path string) ([]models.Dataset, error) {
	probes := []func(string) (func() ([]models.Dataset, error), bool){
		im.probeNetCDF,
		im.probeASCIIHeader,
		im.probeASCIIHarmonic,
	}
	for _, probe := range probes {
		if read, ok := probe(path); ok {
			return read()
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, filepath.Base(path))
}

// probeASCIIHeader matches the plain two-line header: the second line's
// timestep count and component count distinguish scalar, vector, and
// max-pair layouts.
func (im *Importer) probeASCIIHeader(path string) (func() ([]models.Dataset, error), bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	if _, ok := lr.Next(); !ok {
		return nil, false
	}
	line, ok := lr.Next()
	if !ok {
		return nil, false
	}
	toks := lineio.Fields(line)
	if len(toks) < 5 {
		return nil, false
	}
	numTimes, err1 := lineio.Int(toks[0])
	numComps, err2 := lineio.Int(toks[4])
	if err1 != nil || err2 != nil {
		return nil, false
	}
	name := filepath.Base(path)
	switch numComps {
	case 1:
		if numTimes == 2 {
			// A scalar with exactly two timesteps is most likely an
			// extreme-value pair.
			return func() ([]models.Dataset, error) { return im.readASCIIMax(path, name) }, true
		}
		return func() ([]models.Dataset, error) { return im.readASCIIScalars(path, name) }, true
	case 2:
		return func() ([]models.Dataset, error) { return im.readASCIIVectors(path, name) }, true
	}
	return nil, false
}

// probeASCIIHarmonic matches the fort.53/fort.54 layout: a constituent
// count, that many frequency records, a node count, then amplitude/phase
// lines whose width picks scalar vs vector.
func (im *Importer) probeASCIIHarmonic(path string) (func() ([]models.Dataset, error), bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	lr := lineio.NewReader(f)
	line, ok := lr.Next()
	if !ok {
		return nil, false
	}
	toks := lineio.Fields(line)
	if len(toks) == 0 {
		return nil, false
	}
	nfreq, err := lineio.Int(toks[0])
	if err != nil || nfreq <= 1 {
		return nil, false
	}
	for i := 0; i < nfreq; i++ { // constituent table
		if _, ok := lr.Next(); !ok {
			return nil, false
		}
	}
	lr.Next() // node count
	lr.Next() // first node id
	line, ok = lr.Next()
	if !ok {
		return nil, false
	}
	switch len(lineio.Fields(line)) {
	case 2: // EMAGT, PHASEDE
		return func() ([]models.Dataset, error) { return im.readASCIIHarmonic(path, true) }, true
	case 4: // UMAGT, PHASEDU, VMAGT, PHASEDV
		return func() ([]models.Dataset, error) { return im.readASCIIHarmonic(path, false) }, true
	}
	return nil, false
}
