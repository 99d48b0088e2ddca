package cache

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// ErrCorruptRow is returned when a stored blob does not match the expected
// shape
var ErrCorruptRow = errors.New("corrupt training row blob")

// EncodeRow packs a row's coordinates as little-endian float64 values:
// x0, y0, x1, y1, ... across the input then output window
func EncodeRow(row models.TrainingRow) []byte {
	points := row.Points()
	buf := make([]byte, len(points)*16)
	for i, p := range points {
		binary.LittleEndian.PutUint64(buf[i*16:], math.Float64bits(p.X))
		binary.LittleEndian.PutUint64(buf[i*16+8:], math.Float64bits(p.Y))
	}
	return buf
}

// EncodeCounts packs trajectory point counts as little-endian uint32 values
func EncodeCounts(counts []int) []byte {
	if len(counts) == 0 {
		return nil
	}
	buf := make([]byte, len(counts)*4)
	for i, c := range counts {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(c))
	}
	return buf
}

// DecodeCounts unpacks counts written by EncodeCounts. An empty blob yields nil.
func DecodeCounts(blob []byte) ([]int, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, errors.Wrapf(ErrCorruptRow, "count blob of %d bytes", len(blob))
	}
	counts := make([]int, len(blob)/4)
	for i := range counts {
		counts[i] = int(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return counts, nil
}

// DecodeRow unpacks a feature blob written by EncodeRow
func DecodeRow(trajectoryID int64, blob []byte, params models.WindowParams) (models.TrainingRow, error) {
	n := params.WindowLength()
	if len(blob) != n*16 {
		return models.TrainingRow{}, errors.Wrapf(ErrCorruptRow, "expected %d bytes, got %d", n*16, len(blob))
	}

	points := make([]r2.Point, n)
	for i := range points {
		points[i] = r2.Point{
			X: math.Float64frombits(binary.LittleEndian.Uint64(blob[i*16:])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(blob[i*16+8:])),
		}
	}

	return models.TrainingRow{
		TrajectoryID: trajectoryID,
		Input:        points[:params.InputSeqLength:params.InputSeqLength],
		Output:       points[params.InputSeqLength:],
	}, nil
}
