// Package store is the SQLite catalog that imported meshes and datasets
// land in. Geometry and timestep value arrays are stored as packed blobs;
// everything queryable lives in columns.
package store

import (
	"database/sql"
	"fmt"

	"github.com/coastalkit/adcirc/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertMesh stores a mesh with its coordinate system tag and geometry
// fingerprint. Replaces any previous row with the same UUID.
func (s *Store) InsertMesh(m *models.Mesh, cs models.CoordSys) error {
	_, err := s.db.Exec(`
		INSERT INTO meshes (uuid, name, coord_sys, num_nodes, num_cells, fingerprint, points, cells)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			coord_sys = excluded.coord_sys,
			num_nodes = excluded.num_nodes,
			num_cells = excluded.num_cells,
			fingerprint = excluded.fingerprint,
			points = excluded.points,
			cells = excluded.cells
	`, m.UUID, m.Name, cs, len(m.Points), len(m.Cells), Fingerprint(m), encodePoints(m.Points), encodeCells(m.Cells))
	return err
}

// GetMesh loads a mesh and its coordinate system by UUID. Returns nil with
// no error when absent.
func (s *Store) GetMesh(uuid string) (*models.Mesh, models.CoordSys, error) {
	row := s.db.QueryRow(`SELECT uuid, name, coord_sys, points, cells FROM meshes WHERE uuid = ?`, uuid)

	var (
		m      models.Mesh
		cs     models.CoordSys
		points []byte
		cells  []byte
	)
	err := row.Scan(&m.UUID, &m.Name, &cs, &points, &cells)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	if m.Points, err = decodePoints(points); err != nil {
		return nil, 0, fmt.Errorf("decode mesh points: %w", err)
	}
	if m.Cells, err = decodeCells(cells); err != nil {
		return nil, 0, fmt.Errorf("decode mesh cells: %w", err)
	}
	return &m, cs, nil
}

// MeshInfo is a catalog listing row.
type MeshInfo struct {
	UUID        string
	Name        string
	CoordSys    models.CoordSys
	NumNodes    int
	NumCells    int
	Fingerprint uint32
}

func (s *Store) ListMeshes() ([]MeshInfo, error) {
	rows, err := s.db.Query(`SELECT uuid, name, coord_sys, num_nodes, num_cells, fingerprint FROM meshes ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []MeshInfo
	for rows.Next() {
		var mi MeshInfo
		if err := rows.Scan(&mi.UUID, &mi.Name, &mi.CoordSys, &mi.NumNodes, &mi.NumCells, &mi.Fingerprint); err != nil {
			return nil, err
		}
		infos = append(infos, mi)
	}
	return infos, rows.Err()
}

// InsertBoundary stores the boundary arcs of a mesh.
func (s *Store) InsertBoundary(meshUUID string, b *models.Boundary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for i, arc := range b.Arcs {
		if _, err := tx.Exec(`
			INSERT INTO boundary_arcs (mesh_uuid, arc_idx, type, bc_option, tang_slip, galerkin, partner, nodes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(mesh_uuid, arc_idx) DO NOTHING
		`, meshUUID, i, arc.Type, arc.Option, arc.TangentialSlip, arc.Galerkin, arc.Partner, encodeInts(arc.Nodes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert arc %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetBoundaryArcs loads a mesh's boundary arcs in arc order.
func (s *Store) GetBoundaryArcs(meshUUID string) ([]models.BoundaryArc, error) {
	rows, err := s.db.Query(`
		SELECT type, bc_option, tang_slip, galerkin, partner, nodes
		FROM boundary_arcs WHERE mesh_uuid = ? ORDER BY arc_idx
	`, meshUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var arcs []models.BoundaryArc
	for rows.Next() {
		var (
			arc   models.BoundaryArc
			nodes []byte
		)
		if err := rows.Scan(&arc.Type, &arc.Option, &arc.TangentialSlip, &arc.Galerkin, &arc.Partner, &nodes); err != nil {
			return nil, err
		}
		if arc.Nodes, err = decodeInts(nodes); err != nil {
			return nil, fmt.Errorf("decode arc nodes: %w", err)
		}
		arcs = append(arcs, arc)
	}
	return arcs, rows.Err()
}

// InsertDataset stores a dataset and all its timesteps.
func (s *Store) InsertDataset(meshUUID string, d *models.Dataset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO datasets (uuid, mesh_uuid, name, num_components, null_value, time_units, extreme)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.UUID, meshUUID, d.Name, d.NumComponents, d.NullValue, d.TimeUnits, d.Extreme); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert dataset %s: %w", d.Name, err)
	}
	for i, t := range d.Times {
		if _, err := tx.Exec(`
			INSERT INTO dataset_timesteps (dataset_uuid, step_idx, time, data)
			VALUES (?, ?, ?, ?)
		`, d.UUID, i, t, encodeFloats(d.Values[i])); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert timestep %d of %s: %w", i, d.Name, err)
		}
	}
	return tx.Commit()
}

// GetDataset loads a dataset with all timesteps by UUID. Returns nil with
// no error when absent.
func (s *Store) GetDataset(uuid string) (*models.Dataset, error) {
	row := s.db.QueryRow(`
		SELECT uuid, mesh_uuid, name, num_components, null_value, time_units, extreme
		FROM datasets WHERE uuid = ?
	`, uuid)

	var d models.Dataset
	err := row.Scan(&d.UUID, &d.GeomUUID, &d.Name, &d.NumComponents, &d.NullValue, &d.TimeUnits, &d.Extreme)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT time, data FROM dataset_timesteps WHERE dataset_uuid = ? ORDER BY step_idx
	`, uuid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t    float64
			data []byte
		)
		if err := rows.Scan(&t, &data); err != nil {
			return nil, err
		}
		vals, err := decodeFloats(data)
		if err != nil {
			return nil, fmt.Errorf("decode timestep values: %w", err)
		}
		d.Times = append(d.Times, t)
		d.Values = append(d.Values, vals)
	}
	return &d, rows.Err()
}

// DatasetInfo is a catalog listing row.
type DatasetInfo struct {
	UUID          string
	Name          string
	NumComponents int
	Extreme       bool
	NumTimesteps  int
}

func (s *Store) ListDatasets(meshUUID string) ([]DatasetInfo, error) {
	rows, err := s.db.Query(`
		SELECT d.uuid, d.name, d.num_components, d.extreme, COUNT(t.step_idx)
		FROM datasets d LEFT JOIN dataset_timesteps t ON t.dataset_uuid = d.uuid
		WHERE d.mesh_uuid = ?
		GROUP BY d.uuid ORDER BY d.created_at, d.name
	`, meshUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []DatasetInfo
	for rows.Next() {
		var di DatasetInfo
		if err := rows.Scan(&di.UUID, &di.Name, &di.NumComponents, &di.Extreme, &di.NumTimesteps); err != nil {
			return nil, err
		}
		infos = append(infos, di)
	}
	return infos, rows.Err()
}

// SetConfigValue stores a per-mesh model configuration scalar, such as the
// geoid offset distilled from sea_surface_height_above_geoid.
func (s *Store) SetConfigValue(meshUUID, key string, value float64) error {
	_, err := s.db.Exec(`
		INSERT INTO model_config (mesh_uuid, key, value) VALUES (?, ?, ?)
		ON CONFLICT(mesh_uuid, key) DO UPDATE SET value = excluded.value
	`, meshUUID, key, value)
	return err
}

// GetConfigValue returns a configuration scalar. ok is false when unset.
func (s *Store) GetConfigValue(meshUUID, key string) (value float64, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM model_config WHERE mesh_uuid = ? AND key = ?`, meshUUID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}
