// Package solution reads the ADCIRC global output family (fort.63-style
// time series, extreme-value files, harmonic analysis) in ASCII and NetCDF
// form. ADCIRC hard-codes its output filenames, so dispatch is by filename
// first with content sniffing as a fallback.
package solution

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/coastalkit/adcirc/internal/models"
)

var (
	ErrUnrecognizedFormat  = errors.New("unrecognized solution file format")
	ErrIncorrectValueCount = errors.New("incorrect number of values in solution dataset")
	ErrNoData              = errors.New("no ADCIRC solution files found")
)

// Recording-station outputs are time series at sample locations, not mesh
// datasets. They are filtered out before dispatch.
var stationFiles = map[string]bool{
	"fort.61": true, "fort.62": true, "fort.71": true, "fort.72": true,
	"fort.61.nc": true, "fort.62.nc": true, "fort.71.nc": true, "fort.72.nc": true,
}

// Importer reads a set of solution files belonging to one mesh. Not safe
// for concurrent use; create one per file set.
type Importer struct {
	// GeomUUID is stamped on every produced dataset.
	GeomUUID string
	// GeomNodes, when non-zero, is validated against every decoded value
	// array.
	GeomNodes int
	// Strict turns truncated-timestep tolerance into a hard error. The
	// default mirrors ADCIRC tooling convention: keep the timesteps that
	// decoded, drop the rest.
	Strict bool

	logger *log.Logger

	numTS    int
	numNodes int
}

// NewImporter returns an importer for datasets belonging to the geometry
// identified by geomUUID with geomNodes nodes (0 disables the value-count
// check). A nil logger uses the default logger.
func NewImporter(geomUUID string, geomNodes int, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{GeomUUID: geomUUID, GeomNodes: geomNodes, logger: logger}
}

// formatEntry pairs a canonical filename fragment with its reader. Order
// matters: the ".nc" names must be probed before their ASCII prefixes.
type formatEntry struct {
	substr string
	what   string
	read   func(im *Importer, path string) ([]models.Dataset, error)
}

var formats = []formatEntry{
	{"fort.63.nc", "global elevation NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFScalars(p, "zeta", "Water Surface (eta)")
	}},
	{"fort.64.nc", "global velocity NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFVectors(p, "u-vel", "v-vel", "Current Velocity (curr)")
	}},
	{"fort.73.nc", "global wind pressure NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFScalars(p, "pressure", "Atmospheric Pressure")
	}},
	{"fort.74.nc", "global wind stress NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFVectors(p, "windx", "windy", "Wind Stress")
	}},
	{"maxele.63.nc", "global maximum elevation NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFMax(p, "zeta_max", "time_of_zeta_max", "Max eta")
	}},
	{"maxvel.63.nc", "global maximum velocity NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFMax(p, "vel_max", "time_of_vel_max", "Max curr")
	}},
	{"maxwvel.63.nc", "global maximum wind velocity NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFMax(p, "wind_max", "time_of_wind_max", "Max Windvel")
	}},
	{"minpr.63.nc", "global minimum wind pressure NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFMax(p, "pressure_min", "time_of_pressure_min", "Min press")
	}},
	{"maxrs.63.nc", "global maximum radiation stress NetCDF solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readNetCDFMax(p, "radstress_max", "time_of_radstress_max", "Max Radstress")
	}},
	{"fort.63", "global elevation ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIScalars(p, "Water Surface (eta)")
	}},
	{"fort.64", "global velocity ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIVectors(p, "Current Velocity (curr)")
	}},
	{"fort.73", "global wind pressure ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIScalars(p, "Atmospheric Pressure")
	}},
	{"fort.74", "global wind stress ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIVectors(p, "Wind Stress")
	}},
	{"maxele.63", "global maximum elevation ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIMax(p, "Max eta")
	}},
	{"maxvel.63", "global maximum velocity ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIMax(p, "Max curr")
	}},
	{"maxwvel.63", "global maximum wind velocity ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIMax(p, "Max Windvel")
	}},
	{"minpr.63", "global minimum wind pressure ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIMax(p, "Min press")
	}},
	{"maxrs.63", "global maximum radiation stress ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIMax(p, "Max Radstress")
	}},
	{"fort.53", "global elevation harmonic analysis ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIHarmonic(p, true)
	}},
	{"fort.54", "global velocity harmonic analysis ASCII solution", func(im *Importer, p string) ([]models.Dataset, error) {
		return im.readASCIIHarmonic(p, false)
	}},
}

// ReadFile dispatches one file to the matching reader. An unrecognizable
// format returns ErrUnrecognizedFormat; callers doing batch reads treat
// that as per-file and skip.
func (im *Importer) ReadFile(path string) ([]models.Dataset, error) {
	name := strings.ToLower(filepath.Base(path))
	for _, f := range formats {
		if strings.Contains(name, f.substr) {
			im.logger.Printf("reading %s (%s)...", f.what, f.substr)
			return f.read(im, path)
		}
	}
	im.logger.Printf("unable to determine reader from file name, sniffing file contents...")
	return im.sniff(path)
}

// ReadAll reads every file in the batch in order, skipping recording
// stations and files of unrecognized or broken format. It fails hard only
// when no file produced any data.
func (im *Importer) ReadAll(paths []string) ([]models.Dataset, error) {
	var all []models.Dataset
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if stationFiles[strings.ToLower(filepath.Base(path))] {
			continue // recording station solution, don't try to read it
		}
		dsets, err := im.ReadFile(path)
		if err != nil {
			im.logger.Printf("error reading solution file %s: %v", path, err)
			continue
		}
		all = append(all, dsets...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: please run the model again", ErrNoData)
	}
	return all, nil
}
