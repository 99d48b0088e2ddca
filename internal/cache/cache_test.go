package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/trajectory"
)

func TestKey_ChangesWithInputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	sources := []models.Source{{Name: "a.csv", Path: path}}

	base := Key(models.DefaultWindowParams, trajectory.DefaultThresholds, sources)
	assert.Len(t, base, 16)

	same := Key(models.DefaultWindowParams, trajectory.DefaultThresholds, sources)
	assert.Equal(t, base, same)

	params := models.DefaultWindowParams
	params.InputSeqLength = 8
	k := Key(params, trajectory.DefaultThresholds, sources)
	assert.NotEqual(t, base, k)

	thresholds := trajectory.Thresholds{MaxTimeGap: 3 * time.Second, MaxDisplacement: 500}
	k = Key(models.DefaultWindowParams, thresholds, sources)
	assert.NotEqual(t, base, k)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	k = Key(models.DefaultWindowParams, trajectory.DefaultThresholds, sources)
	assert.NotEqual(t, base, k)

	failed := []models.Source{{Name: "a.csv", Err: errors.New("boom")}}
	k = Key(models.DefaultWindowParams, trajectory.DefaultThresholds, failed)
	assert.NotEqual(t, base, k)
}

func TestRowCodec(t *testing.T) {
	params := models.WindowParams{InputSeqLength: 2, OutputSeqLength: 1, NumDimensions: 2}
	row := models.TrainingRow{
		TrajectoryID: 7,
		Input:        []r2.Point{{X: 1.5, Y: -2}, {X: 3, Y: 4}},
		Output:       []r2.Point{{X: 1e9, Y: 0.125}},
	}

	blob := EncodeRow(row)
	assert.Len(t, blob, 3*16)

	decoded, err := DecodeRow(7, blob, params)
	require.NoError(t, err)
	assert.Equal(t, row, decoded)

	_, err = DecodeRow(7, blob[:40], params)
	assert.ErrorIs(t, err, ErrCorruptRow)
}

func TestCountsCodec(t *testing.T) {
	counts := []int{7, 3, 120000}
	back, err := DecodeCounts(EncodeCounts(counts))
	require.NoError(t, err)
	assert.Equal(t, counts, back)

	back, err = DecodeCounts(EncodeCounts(nil))
	require.NoError(t, err)
	assert.Nil(t, back)

	_, err = DecodeCounts([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCorruptRow)
}
