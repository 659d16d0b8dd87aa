package solution

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/coastalkit/adcirc/internal/models"
)

// readVariable reads a whole NetCDF variable as float64s along with its
// dimension lengths.
func readVariable(ds netcdf.Dataset, name string) ([]float64, []int, error) {
	v, err := ds.Var(name)
	if err != nil {
		return nil, nil, fmt.Errorf("variable %q: %w", name, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, nil, fmt.Errorf("dimensions of %q: %w", name, err)
	}
	lens := make([]int, len(dims))
	total := 1
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return nil, nil, fmt.Errorf("dimension length of %q: %w", name, err)
		}
		lens[i] = int(n)
		total *= int(n)
	}
	data := make([]float64, total)
	if total > 0 {
		if err := v.ReadFloat64s(data); err != nil {
			return nil, nil, fmt.Errorf("read %q: %w", name, err)
		}
	}
	return data, lens, nil
}

// scrubNulls round-trips the null sentinel through NaN. Numeric work on the
// raw arrays happens between the two halves; doing both here keeps the
// emitted values bit-identical to the file (null stays null, zero stays
// zero).
func scrubNulls(vals []float64) {
	models.NullsToNaN(vals, models.NullValue)
	models.NaNsToNull(vals, models.NullValue)
}

// readNetCDFScalars reads a transient scalar variable (times x nodes) plus
// the time coordinate variable.
func (im *Importer) readNetCDFScalars(path, varName, name string) ([]models.Dataset, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open NetCDF file: %w", err)
	}
	defer ds.Close()

	data, lens, err := readVariable(ds, varName)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		im.logger.Printf("warning: empty solution data set encountered: %s", path)
		return nil, nil
	}
	if len(lens) != 2 {
		return nil, fmt.Errorf("%w: variable %q is not 2-dimensional", ErrUnrecognizedFormat, varName)
	}
	numTimes, numNodes := lens[0], lens[1]
	if im.GeomNodes > 0 && numNodes != im.GeomNodes {
		return nil, fmt.Errorf("%w: file has %d, geometry has %d", ErrIncorrectValueCount, numNodes, im.GeomNodes)
	}
	times, _, err := readVariable(ds, "time")
	if err != nil {
		return nil, err
	}

	scrubNulls(data)
	dset := im.newDataset(name, 1, false)
	dset.Times = times
	dset.Values = make([][]float64, numTimes)
	for t := 0; t < numTimes; t++ {
		dset.Values[t] = data[t*numNodes : (t+1)*numNodes]
	}
	return []models.Dataset{dset}, nil
}

// readNetCDFVectors reads a transient vector pair (x and y variables) and
// interleaves them per node.
func (im *Importer) readNetCDFVectors(path, xVar, yVar, name string) ([]models.Dataset, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open NetCDF file: %w", err)
	}
	defer ds.Close()

	xData, lens, err := readVariable(ds, xVar)
	if err != nil {
		return nil, err
	}
	yData, _, err := readVariable(ds, yVar)
	if err != nil {
		return nil, err
	}
	if len(xData) == 0 {
		im.logger.Printf("warning: empty solution data set encountered: %s", path)
		return nil, nil
	}
	if len(lens) != 2 || len(yData) != len(xData) {
		return nil, fmt.Errorf("%w: variables %q/%q are not a vector pair", ErrUnrecognizedFormat, xVar, yVar)
	}
	numTimes, numNodes := lens[0], lens[1]
	if im.GeomNodes > 0 && numNodes != im.GeomNodes {
		return nil, fmt.Errorf("%w: file has %d, geometry has %d", ErrIncorrectValueCount, numNodes, im.GeomNodes)
	}
	times, _, err := readVariable(ds, "time")
	if err != nil {
		return nil, err
	}

	scrubNulls(xData)
	scrubNulls(yData)
	dset := im.newDataset(name, 2, false)
	dset.Times = times
	dset.Values = make([][]float64, numTimes)
	for t := 0; t < numTimes; t++ {
		row := make([]float64, 2*numNodes)
		for j := 0; j < numNodes; j++ {
			row[2*j] = xData[t*numNodes+j]
			row[2*j+1] = yData[t*numNodes+j]
		}
		dset.Values[t] = row
	}
	return []models.Dataset{dset}, nil
}

// readNetCDFMax reads an extreme pair: the extreme-value variable and its
// time-of-extreme companion, each one steady-state dataset.
func (im *Importer) readNetCDFMax(path, extremeVar, timeVar, name string) ([]models.Dataset, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open NetCDF file: %w", err)
	}
	defer ds.Close()

	extreme, _, err := readVariable(ds, extremeVar)
	if err != nil {
		return nil, err
	}
	if len(extreme) == 0 {
		im.logger.Printf("warning: empty solution data set encountered: %s", path)
		return nil, nil
	}
	if im.GeomNodes > 0 && len(extreme) != im.GeomNodes {
		return nil, fmt.Errorf("%w: file has %d, geometry has %d", ErrIncorrectValueCount, len(extreme), im.GeomNodes)
	}
	timeOf, _, err := readVariable(ds, timeVar)
	if err != nil {
		return nil, err
	}

	scrubNulls(extreme)
	scrubNulls(timeOf)
	maxDset := im.newDataset(name, 1, true)
	maxDset.Times = []float64{0.0}
	maxDset.Values = [][]float64{extreme}
	timeDset := im.newDataset(name+" Time", 1, true)
	timeDset.Times = []float64{0.0}
	timeDset.Values = [][]float64{timeOf}
	return []models.Dataset{maxDset, timeDset}, nil
}

// probeNetCDF tries to open a non-canonically named file as NetCDF and
// match it by variable presence.
func (im *Importer) probeNetCDF(path string) (func() ([]models.Dataset, error), bool) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, false // not a NetCDF file, fall through to ASCII probes
	}
	defer ds.Close()

	type ncFormat struct {
		variable string
		read     func() ([]models.Dataset, error)
	}
	ncFormats := []ncFormat{
		{"zeta", func() ([]models.Dataset, error) { return im.readNetCDFScalars(path, "zeta", "Water Surface (eta)") }},
		{"u-vel", func() ([]models.Dataset, error) {
			return im.readNetCDFVectors(path, "u-vel", "v-vel", "Current Velocity (curr)")
		}},
		{"pressure", func() ([]models.Dataset, error) { return im.readNetCDFScalars(path, "pressure", "Atmospheric Pressure") }},
		{"windx", func() ([]models.Dataset, error) { return im.readNetCDFVectors(path, "windx", "windy", "Wind Stress") }},
		{"zeta_max", func() ([]models.Dataset, error) {
			return im.readNetCDFMax(path, "zeta_max", "time_of_zeta_max", "Max eta")
		}},
		{"vel_max", func() ([]models.Dataset, error) { return im.readNetCDFMax(path, "vel_max", "time_of_vel_max", "Max curr") }},
		{"wind_max", func() ([]models.Dataset, error) {
			return im.readNetCDFMax(path, "wind_max", "time_of_wind_max", "Max Windvel")
		}},
		{"pressure_min", func() ([]models.Dataset, error) {
			return im.readNetCDFMax(path, "pressure_min", "time_of_pressure_min", "Min press")
		}},
		{"radstress_max", func() ([]models.Dataset, error) {
			return im.readNetCDFMax(path, "radstress_max", "time_of_radstress_max", "Max Radstress")
		}},
	}
	for _, f := range ncFormats {
		if _, err := ds.Var(f.variable); err == nil {
			return f.read, true
		}
	}
	return nil, false
}
