// Package ingest wires the file readers to the catalog store and the
// pipeline metrics. This is the layer the CLI drives.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/coastalkit/adcirc/internal/fort13"
	"github.com/coastalkit/adcirc/internal/fort14"
	"github.com/coastalkit/adcirc/internal/metrics"
	"github.com/coastalkit/adcirc/internal/models"
	"github.com/coastalkit/adcirc/internal/solution"
	"github.com/coastalkit/adcirc/internal/store"
)

// GeoidOffsetKey is the model_config key the fort.13 geoid scalar lands
// under.
const GeoidOffsetKey = "sea_surface_height_above_geoid"

type Pipeline struct {
	store  *store.Store
	logger *log.Logger
	// Strict propagates to the solution importer's truncated-timestep
	// handling.
	Strict bool
}

func New(st *store.Store, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{store: st, logger: logger}
}

// ImportMesh reads a fort.14 and stores the mesh, coordinate tag, and any
// boundary arcs. Returns the read result for chaining further imports.
func (p *Pipeline) ImportMesh(path string, withBoundaries bool, hint *fort14.Hint) (*fort14.Result, error) {
	start := time.Now()
	r := fort14.New(path, p.logger)
	r.ReadBoundaries = withBoundaries
	r.Hint = hint
	res, err := r.Read()
	if err != nil {
		return nil, err
	}
	if err := p.store.InsertMesh(res.Mesh, res.CoordSys); err != nil {
		return nil, fmt.Errorf("store mesh: %w", err)
	}
	if res.Boundary != nil {
		if err := p.store.InsertBoundary(res.Mesh.UUID, res.Boundary); err != nil {
			return nil, fmt.Errorf("store boundary: %w", err)
		}
	}
	metrics.FilesImported.WithLabelValues("fort.14").Inc()
	metrics.ImportLatency.WithLabelValues("fort.14").Observe(time.Since(start).Seconds())
	p.logger.Printf("imported mesh %q (%d nodes, %d elements, %s)",
		res.Mesh.Name, len(res.Mesh.Points), len(res.Mesh.Cells), res.CoordSys)
	return res, nil
}

// ImportAttributes reads a fort.13 against an imported mesh and stores the
// produced datasets plus the geoid-offset configuration scalar if present.
func (p *Pipeline) ImportAttributes(path string, mesh *models.Mesh) (int, error) {
	start := time.Now()
	res, err := fort13.New(path, mesh.UUID, len(mesh.Points), p.logger).Read()
	if err != nil {
		return 0, err
	}
	for i := range res.Datasets {
		if err := p.store.InsertDataset(mesh.UUID, &res.Datasets[i]); err != nil {
			return 0, fmt.Errorf("store dataset %s: %w", res.Datasets[i].Name, err)
		}
		metrics.DatasetsImported.Inc()
	}
	if res.HasGeoidOffset {
		if err := p.store.SetConfigValue(mesh.UUID, GeoidOffsetKey, res.GeoidOffset); err != nil {
			return 0, fmt.Errorf("store geoid offset: %w", err)
		}
	}
	metrics.FilesImported.WithLabelValues("fort.13").Inc()
	metrics.ImportLatency.WithLabelValues("fort.13").Observe(time.Since(start).Seconds())
	return len(res.Datasets), nil
}

// ImportSolutions runs the batch solution importer over paths and stores
// everything it produces.
func (p *Pipeline) ImportSolutions(paths []string, mesh *models.Mesh) (int, error) {
	im := solution.NewImporter(mesh.UUID, len(mesh.Points), p.logger)
	im.Strict = p.Strict
	dsets, err := im.ReadAll(paths)
	if err != nil {
		return 0, err
	}
	for i := range dsets {
		if err := p.store.InsertDataset(mesh.UUID, &dsets[i]); err != nil {
			return 0, fmt.Errorf("store dataset %s: %w", dsets[i].Name, err)
		}
		metrics.DatasetsImported.Inc()
	}
	metrics.FilesImported.WithLabelValues("solution").Add(float64(len(paths)))
	return len(dsets), nil
}

// SolutionFiles lists the files under dir worth handing to the solution
// importer, in deterministic order.
func SolutionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read solution dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch polls dir on the given interval and imports solution files as they
// appear. Already-imported files are remembered by name+modtime, so a
// rewritten file is picked up again. Runs until ctx is canceled.
func (p *Pipeline) Watch(ctx context.Context, dir string, mesh *models.Mesh, interval time.Duration) error {
	seen := make(map[string]time.Time)
	tick := time.NewTicker(interval)
	defer tick.Stop()

	p.logger.Printf("watching %s for solution files every %s", dir, interval)
	for {
		p.sweep(dir, mesh, seen)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func (p *Pipeline) sweep(dir string, mesh *models.Mesh, seen map[string]time.Time) {
	paths, err := SolutionFiles(dir)
	if err != nil {
		p.logger.Printf("warning: %v", err)
		return
	}
	var fresh []string
	pending := make(map[string]time.Time)
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if prev, ok := seen[path]; ok && !fi.ModTime().After(prev) {
			continue
		}
		pending[path] = fi.ModTime()
		fresh = append(fresh, path)
	}
	if len(fresh) == 0 {
		return
	}
	n, err := p.ImportSolutions(fresh, mesh)
	if err != nil {
		// Leave the files out of seen so the next sweep retries them once
		// the cause clears (partial upload, transient read error).
		metrics.FilesSkipped.Add(float64(len(fresh)))
		p.logger.Printf("warning: sweep produced no data: %v", err)
		return
	}
	for path, mt := range pending {
		seen[path] = mt
	}
	p.logger.Printf("imported %d dataset(s) from %d new file(s)", n, len(fresh))
}
