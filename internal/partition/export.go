package partition

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// ManifestFile is the name of the file describing an exported split
const ManifestFile = "manifest.json"

// Manifest describes the arrays written by Export
type Manifest struct {
	DatasetKey string              `json:"dataset_key,omitempty"`
	Seed       uint64              `json:"seed"`
	Fractions  Fractions           `json:"fractions"`
	Params     models.WindowParams `json:"params"`
	Partitions []ManifestEntry     `json:"partitions"`
}

// ManifestEntry describes one exported partition
type ManifestEntry struct {
	Name   string `json:"name"`
	Rows   int    `json:"rows"`
	XShape [2]int `json:"x_shape"`
	YShape [2]int `json:"y_shape"`
	XFile  string `json:"x_file,omitempty"` // gonum binary matrix, absent when empty
	YFile  string `json:"y_file,omitempty"`
}

// Export writes each non-empty partition's X and Y matrices in gonum binary
// form to dir, followed by a manifest
func (s *Split) Export(dir, datasetKey string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &Manifest{
		DatasetKey: datasetKey,
		Seed:       s.Seed,
		Fractions:  s.Fractions,
		Params:     s.Train.Params,
	}

	for _, p := range s.All() {
		params := p.Params
		entry := ManifestEntry{
			Name:   p.Name,
			Rows:   p.Rows,
			XShape: [2]int{p.Rows, params.NumDimensions * params.InputSeqLength},
			YShape: [2]int{p.Rows * params.OutputSeqLength, params.NumDimensions},
		}

		if p.Rows > 0 {
			entry.XFile = p.Name + "_x.bin"
			entry.YFile = p.Name + "_y.bin"
			if err := writeMatrix(filepath.Join(dir, entry.XFile), p.X); err != nil {
				return nil, err
			}
			if err := writeMatrix(filepath.Join(dir, entry.YFile), p.Y); err != nil {
				return nil, err
			}
		}

		manifest.Partitions = append(manifest.Partitions, entry)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	log.Printf("[Partition] Exported train=%d test=%d dev=%d rows to %s",
		s.Train.Rows, s.Test.Rows, s.Dev.Rows, dir)
	return manifest, nil
}

func writeMatrix(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := m.MarshalBinaryTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ReadMatrix loads a matrix written by Export
func ReadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}
