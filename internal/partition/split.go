package partition

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// Partition names
const (
	Train = "train"
	Test  = "test"
	Dev   = "dev"
)

var (
	// ErrUnknownPartition is returned for a name other than train, test or dev
	ErrUnknownPartition = errors.New("unknown partition")
	// ErrBatchOutOfRange is returned for a batch past the end of a partition
	ErrBatchOutOfRange = errors.New("batch out of range")
)

// ceilEpsilon absorbs floating point noise such as (1-0.7)*10 = 3.0000000000000004
const ceilEpsilon = 1e-9

// Fractions defines the share of rows in each partition
type Fractions struct {
	Train float64 `json:"train"`
	Test  float64 `json:"test"`
	Dev   float64 `json:"dev"`
}

// DefaultFractions provides the default 70/20/10 split
var DefaultFractions = Fractions{Train: 0.7, Test: 0.2, Dev: 0.1}

// Validate checks that fractions are within [0, 1] and sum to 1
func (f Fractions) Validate() error {
	shares := []struct {
		name  string
		value float64
	}{{Train, f.Train}, {Test, f.Test}, {Dev, f.Dev}}
	for _, s := range shares {
		if s.value < 0 || s.value > 1 || math.IsNaN(s.value) {
			return fmt.Errorf("%s fraction must be within [0, 1], got %f", s.name, s.value)
		}
	}
	if sum := f.Train + f.Test + f.Dev; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("fractions must sum to 1, got %f", sum)
	}
	return nil
}

// Partition holds one split of the dataset as numeric arrays
type Partition struct {
	Name   string
	Params models.WindowParams
	Rows   int

	// X is Rows x (NumDimensions*InputSeqLength): all x inputs then all y inputs
	X *mat.Dense
	// Y is (Rows*OutputSeqLength) x NumDimensions
	Y *mat.Dense

	TrajectoryIDs []int64
}

// Split is the result of partitioning a dataset
type Split struct {
	Seed      uint64
	Fractions Fractions
	Train     *Partition
	Test      *Partition
	Dev       *Partition
}

// All returns the partitions in train, test, dev order
func (s *Split) All() []*Partition {
	return []*Partition{s.Train, s.Test, s.Dev}
}

// Partition returns the partition with the given name
func (s *Split) Partition(name string) (*Partition, error) {
	for _, p := range s.All() {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPartition, name)
}

// SplitRows shuffles rows with a seeded generator and splits them in two
// stages: first off the train share, then the remainder into test and dev.
// The same rows, fractions and seed always give the same split.
func SplitRows(rows []models.TrainingRow, params models.WindowParams, fractions Fractions, seed uint64) (*Split, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := fractions.Validate(); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r.Input) != params.InputSeqLength || len(r.Output) != params.OutputSeqLength {
			return nil, fmt.Errorf("row %d does not match window shape %d+%d", i, params.InputSeqLength, params.OutputSeqLength)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	indices := rng.Perm(len(rows))
	restCount := ceilCount(1-fractions.Train, len(indices))
	rest, train := indices[:restCount], indices[restCount:]

	dev, test := []int(nil), rest
	if len(rest) > 0 && fractions.Test+fractions.Dev > 0 {
		devShare := fractions.Dev / (fractions.Test + fractions.Dev)
		shuffled := make([]int, len(rest))
		for i, j := range rng.Perm(len(rest)) {
			shuffled[i] = rest[j]
		}
		devCount := ceilCount(devShare, len(shuffled))
		dev, test = shuffled[:devCount], shuffled[devCount:]
	}

	return &Split{
		Seed:      seed,
		Fractions: fractions,
		Train:     build(Train, rows, train, params),
		Test:      build(Test, rows, test, params),
		Dev:       build(Dev, rows, dev, params),
	}, nil
}

func ceilCount(share float64, n int) int {
	count := int(math.Ceil(share*float64(n) - ceilEpsilon))
	if count < 0 {
		return 0
	}
	if count > n {
		return n
	}
	return count
}

func build(name string, rows []models.TrainingRow, indices []int, params models.WindowParams) *Partition {
	p := &Partition{
		Name:          name,
		Params:        params,
		Rows:          len(indices),
		TrajectoryIDs: make([]int64, len(indices)),
	}
	if len(indices) == 0 {
		return p
	}

	in, out := params.InputSeqLength, params.OutputSeqLength
	xData := make([]float64, len(indices)*params.NumDimensions*in)
	yData := make([]float64, len(indices)*out*params.NumDimensions)

	for r, idx := range indices {
		row := rows[idx]
		p.TrajectoryIDs[r] = row.TrajectoryID

		xRow := xData[r*params.NumDimensions*in:]
		for s, pt := range row.Input {
			xRow[s] = pt.X
			xRow[in+s] = pt.Y
		}
		for s, pt := range row.Output {
			yData[(r*out+s)*params.NumDimensions] = pt.X
			yData[(r*out+s)*params.NumDimensions+1] = pt.Y
		}
	}

	p.X = mat.NewDense(len(indices), params.NumDimensions*in, xData)
	p.Y = mat.NewDense(len(indices)*out, params.NumDimensions, yData)
	return p
}

// InputAt returns coordinate dim (0 = x, 1 = y) of input step of row
func (p *Partition) InputAt(row, dim, step int) float64 {
	return p.X.At(row, dim*p.Params.InputSeqLength+step)
}

// OutputAt returns coordinate dim of output step of row
func (p *Partition) OutputAt(row, dim, step int) float64 {
	return p.Y.At(row*p.Params.OutputSeqLength+step, dim)
}

// Batches returns the number of batches of size needed to cover the partition
func (p *Partition) Batches(size int) int {
	if size < 1 {
		return 0
	}
	return (p.Rows + size - 1) / size
}

// NextBatch returns copies of the rows of batch number batch (0-based) of the
// given size. The last batch may be short.
func (p *Partition) NextBatch(batch, size int) (x, y *mat.Dense, err error) {
	if size < 1 {
		return nil, nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrBatchOutOfRange, size)
	}
	if batch < 0 || batch >= p.Batches(size) {
		return nil, nil, fmt.Errorf("%w: batch %d of size %d for %d rows of %s", ErrBatchOutOfRange, batch, size, p.Rows, p.Name)
	}

	start := batch * size
	end := min(start+size, p.Rows)
	cols := p.X.RawMatrix().Cols
	out := p.Params.OutputSeqLength

	x = mat.DenseCopyOf(p.X.Slice(start, end, 0, cols))
	y = mat.DenseCopyOf(p.Y.Slice(start*out, end*out, 0, p.Params.NumDimensions))
	return x, y, nil
}
