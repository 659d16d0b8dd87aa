package store

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/coastalkit/adcirc/internal/models"
)

// Blob packing for geometry and value arrays: little-endian float64/int64,
// no framing. Lengths are implied by the blob size.

func encodeFloats(vals []float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("float blob length %d not a multiple of 8", len(buf))
	}
	vals := make([]float64, len(buf)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return vals, nil
}

func encodeInts(vals []int) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return buf
}

func decodeInts(buf []byte) ([]int, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("int blob length %d not a multiple of 8", len(buf))
	}
	vals := make([]int, len(buf)/8)
	for i := range vals {
		vals[i] = int(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return vals, nil
}

func encodePoints(pts []models.Point) []byte {
	buf := make([]byte, 24*len(pts))
	for i, p := range pts {
		binary.LittleEndian.PutUint64(buf[24*i:], math.Float64bits(p.X))
		binary.LittleEndian.PutUint64(buf[24*i+8:], math.Float64bits(p.Y))
		binary.LittleEndian.PutUint64(buf[24*i+16:], math.Float64bits(p.Z))
	}
	return buf
}

func decodePoints(buf []byte) ([]models.Point, error) {
	if len(buf)%24 != 0 {
		return nil, fmt.Errorf("point blob length %d not a multiple of 24", len(buf))
	}
	pts := make([]models.Point, len(buf)/24)
	for i := range pts {
		pts[i].X = math.Float64frombits(binary.LittleEndian.Uint64(buf[24*i:]))
		pts[i].Y = math.Float64frombits(binary.LittleEndian.Uint64(buf[24*i+8:]))
		pts[i].Z = math.Float64frombits(binary.LittleEndian.Uint64(buf[24*i+16:]))
	}
	return pts, nil
}

func encodeCells(cells [][3]int) []byte {
	buf := make([]byte, 24*len(cells))
	for i, c := range cells {
		binary.LittleEndian.PutUint64(buf[24*i:], uint64(c[0]))
		binary.LittleEndian.PutUint64(buf[24*i+8:], uint64(c[1]))
		binary.LittleEndian.PutUint64(buf[24*i+16:], uint64(c[2]))
	}
	return buf
}

func decodeCells(buf []byte) ([][3]int, error) {
	if len(buf)%24 != 0 {
		return nil, fmt.Errorf("cell blob length %d not a multiple of 24", len(buf))
	}
	cells := make([][3]int, len(buf)/24)
	for i := range cells {
		cells[i][0] = int(binary.LittleEndian.Uint64(buf[24*i:]))
		cells[i][1] = int(binary.LittleEndian.Uint64(buf[24*i+8:]))
		cells[i][2] = int(binary.LittleEndian.Uint64(buf[24*i+16:]))
	}
	return cells, nil
}

// Fingerprint is a CRC over the packed geometry. Attribute and dataset
// attachments made against one fingerprint are stale once the mesh is
// edited.
func Fingerprint(m *models.Mesh) uint32 {
	crc := crc32.ChecksumIEEE(encodePoints(m.Points))
	return crc32.Update(crc, crc32.IEEETable, encodeCells(m.Cells))
}
